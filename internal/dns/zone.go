package dns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"

	"github.com/blackwell-systems/platform-cli/internal/identity"
)

func tagZone(ctx context.Context, id *identity.Context, api Route53API, zoneID string) error {
	_, err := api.ChangeTagsForResource(ctx, &route53.ChangeTagsForResourceInput{
		ResourceId:   aws.String(ShortZoneID(zoneID)),
		ResourceType: r53types.TagResourceTypeHostedzone,
		AddTags: []r53types.Tag{
			{Key: aws.String(identity.OwnerTagKey), Value: aws.String(id.Owner())},
			{Key: aws.String(identity.CreatedByTagKey), Value: aws.String(id.CreatedBy())},
		},
	})
	return err
}

func zoneOwned(ctx context.Context, id *identity.Context, api Route53API, zoneID string) (bool, error) {
	out, err := api.ListTagsForResource(ctx, &route53.ListTagsForResourceInput{
		ResourceId:   aws.String(ShortZoneID(zoneID)),
		ResourceType: r53types.TagResourceTypeHostedzone,
	})
	if err != nil {
		return false, err
	}
	tags := make(map[string]string)
	if out.ResourceTagSet != nil {
		for _, tag := range out.ResourceTagSet.Tags {
			tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
	}
	return id.Owns(tags), nil
}

// ListOwnedZones returns the hosted zones carrying both ownership tags. Like
// bucket listing, tags are read zone by zone and a zone whose tags the
// provider refuses to return is skipped. Other failures, a cancelled context
// included, are returned.
func ListOwnedZones(ctx context.Context, id *identity.Context, api Route53API, log logr.Logger) ([]Zone, error) {
	var zones []Zone
	input := &route53.ListHostedZonesInput{}
	for {
		out, err := api.ListHostedZones(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dns: list hosted zones: %w", err)
		}
		for _, hz := range out.HostedZones {
			zoneID := aws.ToString(hz.Id)
			owned, err := zoneOwned(ctx, id, api, zoneID)
			if err != nil {
				var apiErr smithy.APIError
				if ctx.Err() != nil || !errors.As(err, &apiErr) {
					return nil, fmt.Errorf("dns: read tags of %s: %w", zoneID, err)
				}
				log.V(1).Info("skipping hosted zone", "zone", zoneID, "reason", apiErr.ErrorCode())
				continue
			}
			if owned {
				zones = append(zones, Zone{ID: zoneID, Name: aws.ToString(hz.Name)})
			}
		}
		if !out.IsTruncated {
			return zones, nil
		}
		input = &route53.ListHostedZonesInput{Marker: out.NextMarker}
	}
}
