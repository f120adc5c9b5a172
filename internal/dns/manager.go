// Package dns manages a hosted zone and the record sets inside it.
//
// The provider's record API is not diff based: deleting a record needs its
// complete current body, and UPSERT replaces the whole record. Every partial
// mutation here is therefore an explicit two-step contract: read the current
// record (GetRecord), merge, then write the full replacement.
//
// Change batches are asynchronous on the provider side. A returned Change
// means the batch was accepted; nothing here waits for propagation.
package dns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/blackwell-systems/platform-cli/internal/identity"
)

// Route53API is the subset of the Route 53 client the manager uses.
type Route53API interface {
	CreateHostedZone(ctx context.Context, params *route53.CreateHostedZoneInput, optFns ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error)
	DeleteHostedZone(ctx context.Context, params *route53.DeleteHostedZoneInput, optFns ...func(*route53.Options)) (*route53.DeleteHostedZoneOutput, error)
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
	ChangeTagsForResource(ctx context.Context, params *route53.ChangeTagsForResourceInput, optFns ...func(*route53.Options)) (*route53.ChangeTagsForResourceOutput, error)
	ListTagsForResource(ctx context.Context, params *route53.ListTagsForResourceInput, optFns ...func(*route53.Options)) (*route53.ListTagsForResourceOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

// NewAPI builds a Route 53 client from id's credentials.
func NewAPI(ctx context.Context, id *identity.Context) (Route53API, error) {
	cfg, err := id.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return route53.NewFromConfig(cfg), nil
}

// Zone is a hosted zone reference.
type Zone struct {
	ID          string // full id, e.g. "/hostedzone/Z123"
	Name        string
	NameServers []string
}

// Manager operates on the records of one hosted zone. The zone id is held
// only for the lifetime of the Manager.
type Manager struct {
	id   *identity.Context
	api  Route53API
	log  logr.Logger
	zone Zone
}

// CreateZone creates a hosted zone for domain, tags it with the ownership tag
// pair, and returns a Manager bound to it. Each call uses a fresh caller
// reference, so retrying CreateZone creates a second zone.
func CreateZone(ctx context.Context, id *identity.Context, api Route53API, domain string, log logr.Logger) (*Manager, error) {
	ref := uuid.NewString()
	log.V(1).Info("creating hosted zone", "domain", domain, "callerReference", ref)

	out, err := api.CreateHostedZone(ctx, &route53.CreateHostedZoneInput{
		Name:            aws.String(domain),
		CallerReference: aws.String(ref),
		HostedZoneConfig: &r53types.HostedZoneConfig{
			Comment: aws.String(fmt.Sprintf("managed by %s for %s", id.CreatedBy(), id.Owner())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dns: create hosted zone %s: %w", domain, err)
	}
	if out.HostedZone == nil {
		return nil, fmt.Errorf("dns: create hosted zone %s: provider returned no zone", domain)
	}

	zone := Zone{
		ID:   aws.ToString(out.HostedZone.Id),
		Name: aws.ToString(out.HostedZone.Name),
	}
	if out.DelegationSet != nil {
		zone.NameServers = out.DelegationSet.NameServers
	}

	if err := tagZone(ctx, id, api, zone.ID); err != nil {
		log.Info("tagging failed, removing hosted zone", "zone", zone.ID, "error", err.Error())
		if _, delErr := api.DeleteHostedZone(ctx, &route53.DeleteHostedZoneInput{Id: aws.String(ShortZoneID(zone.ID))}); delErr != nil {
			return nil, fmt.Errorf("dns: hosted zone %s created but left untagged: %w", zone.ID, errors.Join(err, delErr))
		}
		return nil, fmt.Errorf("dns: tag hosted zone %s (zone removed): %w", zone.ID, err)
	}

	log.Info("hosted zone created", "zone", zone.ID, "name", zone.Name)
	return &Manager{id: id, api: api, log: log, zone: zone}, nil
}

// Attach returns a Manager for an existing zone. No provider call is made.
func Attach(id *identity.Context, api Route53API, zoneID string, log logr.Logger) *Manager {
	if zoneID != "" && ShortZoneID(zoneID) == zoneID {
		zoneID = hostedZonePrefix + zoneID
	}
	return &Manager{id: id, api: api, log: log, zone: Zone{ID: zoneID}}
}

func (m *Manager) Zone() Zone { return m.zone }

// CreateRecord adds a record with a CREATE action. Empty Type means A and a
// zero TTL means DefaultTTL. The provider rejects the batch if a record with
// the same name and type already exists.
func (m *Manager) CreateRecord(ctx context.Context, rec Record) (*Change, error) {
	if rec.Type == "" {
		rec.Type = DefaultType
	}
	if rec.TTL == 0 {
		rec.TTL = DefaultTTL
	}
	if len(rec.Values) == 0 {
		return nil, fmt.Errorf("dns: create %s %s: a value is required", rec.Name, rec.Type)
	}

	m.log.V(1).Info("creating record", "name", rec.Name, "type", rec.Type, "values", rec.Values, "ttl", rec.TTL)
	return m.change(ctx, r53types.ChangeActionCreate, rec.toSet())
}

// GetRecord reads back the current record of the given name and type. Empty
// recordType means A. It returns ErrRecordNotFound if there is none.
func (m *Manager) GetRecord(ctx context.Context, name, recordType string) (*Record, error) {
	rrs, err := m.lookup(ctx, name, recordType)
	if err != nil {
		return nil, err
	}
	return recordFromSet(rrs), nil
}

// DeleteRecord removes the record of the given name and type (A when empty).
// The current record is read first because the provider needs its literal
// body.
func (m *Manager) DeleteRecord(ctx context.Context, name, recordType string) (*Change, error) {
	rrs, err := m.lookup(ctx, name, recordType)
	if err != nil {
		return nil, err
	}

	m.log.V(1).Info("deleting record", "name", aws.ToString(rrs.Name), "type", rrs.Type)
	return m.change(ctx, r53types.ChangeActionDelete, rrs)
}

// UpdateRecord replaces a record with an UPSERT. Fields missing from upd are
// taken from the current record; a missing TTL with no current record falls
// back to DefaultTTL. An empty upd is rejected without contacting the
// provider. Alias records cannot be merged and return ErrAliasRecord; an
// update carrying both values and a TTL replaces them outright.
func (m *Manager) UpdateRecord(ctx context.Context, name, recordType string, upd Update) (*Change, error) {
	if len(upd.Values) == 0 && upd.TTL == nil {
		return nil, fmt.Errorf("dns: update %s: %w", name, ErrNothingToUpdate)
	}
	if recordType == "" {
		recordType = DefaultType
	}

	rec := Record{Name: name, Type: recordType, Values: upd.Values, TTL: DefaultTTL}
	if upd.TTL != nil {
		rec.TTL = *upd.TTL
	}

	if len(upd.Values) == 0 || upd.TTL == nil {
		rrs, err := m.lookup(ctx, name, recordType)
		switch {
		case errors.Is(err, ErrRecordNotFound) && len(upd.Values) > 0:
			// nothing to merge, the upsert creates the record
		case err != nil:
			return nil, err
		case rrs.AliasTarget != nil:
			return nil, fmt.Errorf("dns: update %s %s: %w", FQDN(name), recordType, ErrAliasRecord)
		default:
			current := recordFromSet(rrs)
			if len(upd.Values) == 0 {
				rec.Values = current.Values
			}
			if upd.TTL == nil && current.TTL != 0 {
				rec.TTL = current.TTL
			}
		}
	}

	m.log.V(1).Info("upserting record", "name", rec.Name, "type", rec.Type, "values", rec.Values, "ttl", rec.TTL)
	return m.change(ctx, r53types.ChangeActionUpsert, rec.toSet())
}

// ListRecords returns every record set in the zone, including NS and SOA.
func (m *Manager) ListRecords(ctx context.Context) ([]Record, error) {
	sets, err := m.listSets(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(sets))
	for i := range sets {
		records = append(records, *recordFromSet(&sets[i]))
	}
	return records, nil
}

// DeleteZone removes every record except the apex NS and SOA, then the zone
// itself. Delegations below the apex are NS records too and are removed. For
// an attached zone the apex is the name of its SOA record. Zones not carrying
// the ownership tag pair are refused.
func (m *Manager) DeleteZone(ctx context.Context) error {
	owned, err := zoneOwned(ctx, m.id, m.api, m.zone.ID)
	if err != nil {
		return fmt.Errorf("dns: delete zone %s: %w", m.zone.ID, err)
	}
	if !owned {
		return fmt.Errorf("dns: delete zone %s: %w", m.zone.ID, ErrNotOwned)
	}

	sets, err := m.listSets(ctx)
	if err != nil {
		return err
	}
	apex := zoneApex(m.zone.Name, sets)
	var changes []r53types.Change
	for i := range sets {
		if isApexRecord(&sets[i], apex) {
			continue
		}
		changes = append(changes, r53types.Change{
			Action:            r53types.ChangeActionDelete,
			ResourceRecordSet: &sets[i],
		})
	}
	if len(changes) > 0 {
		m.log.V(1).Info("removing records before zone deletion", "zone", m.zone.ID, "count", len(changes))
		_, err := m.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(ShortZoneID(m.zone.ID)),
			ChangeBatch:  &r53types.ChangeBatch{Changes: changes},
		})
		if err != nil {
			return fmt.Errorf("dns: empty zone %s: %w", m.zone.ID, err)
		}
	}

	if _, err := m.api.DeleteHostedZone(ctx, &route53.DeleteHostedZoneInput{Id: aws.String(ShortZoneID(m.zone.ID))}); err != nil {
		return fmt.Errorf("dns: delete zone %s: %w", m.zone.ID, err)
	}
	m.log.Info("hosted zone deleted", "zone", m.zone.ID)
	return nil
}

func (m *Manager) change(ctx context.Context, action r53types.ChangeAction, rrs *r53types.ResourceRecordSet) (*Change, error) {
	out, err := m.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(ShortZoneID(m.zone.ID)),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{{Action: action, ResourceRecordSet: rrs}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dns: %s %s %s: %w", action, aws.ToString(rrs.Name), rrs.Type, err)
	}
	return changeFromInfo(out.ChangeInfo), nil
}

// lookup finds the literal record set for name and type.
func (m *Manager) lookup(ctx context.Context, name, recordType string) (*r53types.ResourceRecordSet, error) {
	if recordType == "" {
		recordType = DefaultType
	}
	fqdn := FQDN(name)

	out, err := m.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(ShortZoneID(m.zone.ID)),
		StartRecordName: aws.String(fqdn),
		StartRecordType: r53types.RRType(recordType),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("dns: read %s %s: %w", fqdn, recordType, err)
	}
	for i := range out.ResourceRecordSets {
		rrs := &out.ResourceRecordSets[i]
		if FQDN(aws.ToString(rrs.Name)) == fqdn && string(rrs.Type) == recordType {
			return rrs, nil
		}
	}
	return nil, fmt.Errorf("dns: %s %s: %w", fqdn, recordType, ErrRecordNotFound)
}

func (m *Manager) listSets(ctx context.Context) ([]r53types.ResourceRecordSet, error) {
	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(ShortZoneID(m.zone.ID))}
	var sets []r53types.ResourceRecordSet
	for {
		out, err := m.api.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dns: list records in %s: %w", m.zone.ID, err)
		}
		sets = append(sets, out.ResourceRecordSets...)
		if !out.IsTruncated {
			return sets, nil
		}
		input = &route53.ListResourceRecordSetsInput{
			HostedZoneId:          input.HostedZoneId,
			StartRecordName:       out.NextRecordName,
			StartRecordType:       out.NextRecordType,
			StartRecordIdentifier: out.NextRecordIdentifier,
		}
	}
}

// zoneApex is the zone's own name, or the SOA owner when the name is unknown.
func zoneApex(name string, sets []r53types.ResourceRecordSet) string {
	if name != "" {
		return FQDN(name)
	}
	for i := range sets {
		if sets[i].Type == r53types.RRTypeSoa {
			return FQDN(aws.ToString(sets[i].Name))
		}
	}
	return ""
}

// isApexRecord reports whether rrs is one of the NS or SOA sets the provider
// keeps until the zone itself is deleted.
func isApexRecord(rrs *r53types.ResourceRecordSet, apex string) bool {
	if rrs.Type != r53types.RRTypeNs && rrs.Type != r53types.RRTypeSoa {
		return false
	}
	return apex != "" && FQDN(aws.ToString(rrs.Name)) == apex
}
