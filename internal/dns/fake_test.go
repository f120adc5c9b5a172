package dns

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
)

type fakeZone struct {
	name    string
	tags    map[string]string
	records []r53types.ResourceRecordSet
}

// fakeRoute53 is an in-memory Route 53. It enforces CREATE uniqueness and
// requires DELETE to carry the exact current record, as the provider does.
type fakeRoute53 struct {
	zones     map[string]*fakeZone
	nextZone  int
	nextChg   int
	zoneOrder []string

	createInputs []*route53.CreateHostedZoneInput
	changeCalls  int
	listCalls    int

	tagErr     error
	tagReadErr map[string]error
}

func newFakeRoute53() *fakeRoute53 {
	return &fakeRoute53{zones: make(map[string]*fakeZone)}
}

func invalidChangeBatch(format string, args ...interface{}) error {
	return &smithy.GenericAPIError{Code: "InvalidChangeBatch", Message: fmt.Sprintf(format, args...)}
}

func (f *fakeRoute53) addZone(name string, tags map[string]string) string {
	f.nextZone++
	id := fmt.Sprintf("Z%08d", f.nextZone)
	fqdn := FQDN(name)
	f.zones[id] = &fakeZone{
		name: fqdn,
		tags: tags,
		records: []r53types.ResourceRecordSet{
			{
				Name:            aws.String(fqdn),
				Type:            r53types.RRTypeNs,
				TTL:             aws.Int64(172800),
				ResourceRecords: []r53types.ResourceRecord{{Value: aws.String("ns-1.awsdns-00.com.")}},
			},
			{
				Name:            aws.String(fqdn),
				Type:            r53types.RRTypeSoa,
				TTL:             aws.Int64(900),
				ResourceRecords: []r53types.ResourceRecord{{Value: aws.String("ns-1.awsdns-00.com. hostmaster. 1 7200 900 1209600 86400")}},
			},
		},
	}
	f.zoneOrder = append(f.zoneOrder, id)
	return id
}

func (f *fakeRoute53) zone(id *string) (*fakeZone, error) {
	z, ok := f.zones[ShortZoneID(aws.ToString(id))]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchHostedZone"}
	}
	return z, nil
}

func (f *fakeRoute53) CreateHostedZone(ctx context.Context, params *route53.CreateHostedZoneInput, optFns ...func(*route53.Options)) (*route53.CreateHostedZoneOutput, error) {
	f.createInputs = append(f.createInputs, params)
	id := f.addZone(aws.ToString(params.Name), nil)
	return &route53.CreateHostedZoneOutput{
		HostedZone: &r53types.HostedZone{
			Id:              aws.String(hostedZonePrefix + id),
			Name:            aws.String(f.zones[id].name),
			CallerReference: params.CallerReference,
		},
		DelegationSet: &r53types.DelegationSet{NameServers: []string{"ns-1.awsdns-00.com"}},
		ChangeInfo:    f.changeInfo(),
	}, nil
}

func (f *fakeRoute53) DeleteHostedZone(ctx context.Context, params *route53.DeleteHostedZoneInput, optFns ...func(*route53.Options)) (*route53.DeleteHostedZoneOutput, error) {
	z, err := f.zone(params.Id)
	if err != nil {
		return nil, err
	}
	for _, rrs := range z.records {
		apex := FQDN(aws.ToString(rrs.Name)) == z.name
		if !apex || (rrs.Type != r53types.RRTypeNs && rrs.Type != r53types.RRTypeSoa) {
			return nil, &smithy.GenericAPIError{Code: "HostedZoneNotEmpty"}
		}
	}
	delete(f.zones, ShortZoneID(aws.ToString(params.Id)))
	return &route53.DeleteHostedZoneOutput{ChangeInfo: f.changeInfo()}, nil
}

func (f *fakeRoute53) ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error) {
	out := &route53.ListHostedZonesOutput{}
	for _, id := range f.zoneOrder {
		z, ok := f.zones[id]
		if !ok {
			continue
		}
		out.HostedZones = append(out.HostedZones, r53types.HostedZone{
			Id:   aws.String(hostedZonePrefix + id),
			Name: aws.String(z.name),
		})
	}
	return out, nil
}

func (f *fakeRoute53) ChangeTagsForResource(ctx context.Context, params *route53.ChangeTagsForResourceInput, optFns ...func(*route53.Options)) (*route53.ChangeTagsForResourceOutput, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	if params.ResourceType != r53types.TagResourceTypeHostedzone {
		return nil, &smithy.GenericAPIError{Code: "InvalidInput"}
	}
	z, err := f.zone(params.ResourceId)
	if err != nil {
		return nil, err
	}
	if z.tags == nil {
		z.tags = make(map[string]string)
	}
	for _, tag := range params.AddTags {
		z.tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return &route53.ChangeTagsForResourceOutput{}, nil
}

func (f *fakeRoute53) ListTagsForResource(ctx context.Context, params *route53.ListTagsForResourceInput, optFns ...func(*route53.Options)) (*route53.ListTagsForResourceOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.tagReadErr[aws.ToString(params.ResourceId)]; err != nil {
		return nil, err
	}
	z, err := f.zone(params.ResourceId)
	if err != nil {
		return nil, err
	}
	set := &r53types.ResourceTagSet{ResourceId: params.ResourceId, ResourceType: params.ResourceType}
	for k, v := range z.tags {
		set.Tags = append(set.Tags, r53types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return &route53.ListTagsForResourceOutput{ResourceTagSet: set}, nil
}

func (f *fakeRoute53) changeInfo() *r53types.ChangeInfo {
	f.nextChg++
	return &r53types.ChangeInfo{
		Id:          aws.String(fmt.Sprintf("/change/C%08d", f.nextChg)),
		Status:      r53types.ChangeStatusPending,
		SubmittedAt: aws.Time(time.Now()),
	}
}

func sameRecord(a, b r53types.ResourceRecordSet) bool {
	return FQDN(aws.ToString(a.Name)) == FQDN(aws.ToString(b.Name)) &&
		a.Type == b.Type &&
		aws.ToInt64(a.TTL) == aws.ToInt64(b.TTL) &&
		reflect.DeepEqual(values(a), values(b))
}

func values(rrs r53types.ResourceRecordSet) []string {
	var v []string
	for _, rr := range rrs.ResourceRecords {
		v = append(v, aws.ToString(rr.Value))
	}
	return v
}

func indexOf(records []r53types.ResourceRecordSet, name string, t r53types.RRType) int {
	for i, rrs := range records {
		if FQDN(aws.ToString(rrs.Name)) == FQDN(name) && rrs.Type == t {
			return i
		}
	}
	return -1
}

func (f *fakeRoute53) ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.changeCalls++
	z, err := f.zone(params.HostedZoneId)
	if err != nil {
		return nil, err
	}

	// apply to a copy so a failing batch changes nothing
	records := append([]r53types.ResourceRecordSet(nil), z.records...)
	for _, ch := range params.ChangeBatch.Changes {
		rrs := *ch.ResourceRecordSet
		rrs.Name = aws.String(FQDN(aws.ToString(rrs.Name)))
		idx := indexOf(records, aws.ToString(rrs.Name), rrs.Type)
		switch ch.Action {
		case r53types.ChangeActionCreate:
			if idx >= 0 {
				return nil, invalidChangeBatch("Tried to create resource record set [name='%s', type='%s'] but it already exists", aws.ToString(rrs.Name), rrs.Type)
			}
			records = append(records, rrs)
		case r53types.ChangeActionDelete:
			if idx < 0 || !sameRecord(records[idx], rrs) {
				return nil, invalidChangeBatch("Tried to delete resource record set [name='%s', type='%s'] but it was not found", aws.ToString(rrs.Name), rrs.Type)
			}
			records = append(records[:idx], records[idx+1:]...)
		case r53types.ChangeActionUpsert:
			if idx >= 0 {
				records[idx] = rrs
			} else {
				records = append(records, rrs)
			}
		}
	}
	z.records = records
	return &route53.ChangeResourceRecordSetsOutput{ChangeInfo: f.changeInfo()}, nil
}

func (f *fakeRoute53) ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	f.listCalls++
	z, err := f.zone(params.HostedZoneId)
	if err != nil {
		return nil, err
	}

	sorted := append([]r53types.ResourceRecordSet(nil), z.records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ni, nj := aws.ToString(sorted[i].Name), aws.ToString(sorted[j].Name)
		if ni != nj {
			return ni < nj
		}
		return sorted[i].Type < sorted[j].Type
	})

	start := 0
	if params.StartRecordName != nil {
		startName := FQDN(aws.ToString(params.StartRecordName))
		start = len(sorted)
		for i, rrs := range sorted {
			n := aws.ToString(rrs.Name)
			if n > startName || (n == startName && (params.StartRecordType == "" || rrs.Type >= params.StartRecordType)) {
				start = i
				break
			}
		}
	}

	end := len(sorted)
	if limit := int(aws.ToInt32(params.MaxItems)); limit > 0 && start+limit < end {
		end = start + limit
	}

	out := &route53.ListResourceRecordSetsOutput{ResourceRecordSets: sorted[start:end]}
	if end < len(sorted) {
		out.IsTruncated = true
		out.NextRecordName = sorted[end].Name
		out.NextRecordType = sorted[end].Type
	}
	return out, nil
}
