// Package identity carries the credential pair and ownership labels that every
// platform-cli operation runs under.
//
// Every resource created by platform-cli is stamped with the ownership tag
// pair (Owner, CreatedBy). Listing operations later match on both tags to find
// the resources this tool manages.
package identity

import (
	"fmt"
	"net/url"
)

const (
	// CreatedBy is the creator label stamped on every resource.
	CreatedBy = "platform-cli"

	// DefaultRegion is used when no region is configured. It is also the
	// region whose bucket creation must omit a location constraint.
	DefaultRegion = "us-east-1"

	OwnerTagKey     = "Owner"
	CreatedByTagKey = "CreatedBy"
)

// Context is the identity a manager acts as. It is immutable once built.
type Context struct {
	accessKey string
	secretKey string
	owner     string
	region    string
	endpoint  string
}

// Option configures optional Context fields.
type Option func(*Context)

// WithRegion overrides DefaultRegion.
func WithRegion(region string) Option {
	return func(c *Context) {
		if region != "" {
			c.region = region
		}
	}
}

// WithEndpoint points every client at a custom API endpoint, e.g. a local
// emulator.
func WithEndpoint(endpoint string) Option {
	return func(c *Context) {
		c.endpoint = endpoint
	}
}

// New builds an identity. The credential format is not checked here; a bad
// pair surfaces on the first provider call.
func New(accessKey, secretKey, owner string, opts ...Option) (*Context, error) {
	if owner == "" {
		return nil, fmt.Errorf("identity: owner is required")
	}
	c := &Context{
		accessKey: accessKey,
		secretKey: secretKey,
		owner:     owner,
		region:    DefaultRegion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Context) AccessKey() string { return c.accessKey }
func (c *Context) SecretKey() string { return c.secretKey }
func (c *Context) Owner() string     { return c.owner }
func (c *Context) CreatedBy() string { return CreatedBy }
func (c *Context) Region() string    { return c.region }
func (c *Context) Endpoint() string  { return c.endpoint }

// Tags returns the ownership tag pair as a map.
func (c *Context) Tags() map[string]string {
	return map[string]string{
		OwnerTagKey:     c.owner,
		CreatedByTagKey: CreatedBy,
	}
}

// TagQuery encodes the ownership tag pair as a URL query string, the form
// object tagging takes on upload.
func (c *Context) TagQuery() string {
	v := url.Values{}
	v.Set(OwnerTagKey, c.owner)
	v.Set(CreatedByTagKey, CreatedBy)
	return v.Encode()
}

// Owns reports whether a tag set carries both ownership tags with this
// identity's values.
func (c *Context) Owns(tags map[string]string) bool {
	return tags[OwnerTagKey] == c.owner && tags[CreatedByTagKey] == CreatedBy
}
