// Command platform-cli provisions compute instances, storage buckets and DNS
// records, tagging each with an owner and a creator so that later commands
// list and operate only on the resources it created.
//
// # Installation
//
//	go install github.com/blackwell-systems/platform-cli/cmd/platform-cli@latest
//
// # Quick Start
//
//	export AWS_ACCESS_KEY_ID=... AWS_SECRET_ACCESS_KEY=...
//	platform-cli --owner alice configure
//	platform-cli --owner alice compute create --type t3.micro --image ubuntu
//	platform-cli --owner alice compute list
//	platform-cli --owner alice storage create alice-artifacts
//	platform-cli --owner alice dns create-zone example.com
//
// # Ownership
//
// Every resource is tagged Owner=<owner> and CreatedBy=platform-cli. Listing
// and bulk operations match both tags, so resources created by other tools or
// other owners are never touched.
//
// # Configuration
//
// Settings resolve in the order flags, PLATFORM_CLI_* environment variables,
// $HOME/.platform-cli/config.yaml, then defaults. See 'platform-cli config get'.
package main
