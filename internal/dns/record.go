package dns

import (
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
)

const (
	DefaultType = "A"
	DefaultTTL  = int64(300)
)

var (
	ErrRecordNotFound  = errors.New("no such record")
	ErrNothingToUpdate = errors.New("at least one of value or ttl is required")
	ErrNotOwned        = errors.New("hosted zone is not owned by this identity")
	ErrAliasRecord     = errors.New("alias records can only be replaced with both value and ttl")
)

// Record represents a DNS record set.
type Record struct {
	Name   string   // FQDN, e.g. "app.example.com."
	Type   string   // "A", "AAAA", "CNAME", ...
	TTL    int64    // 0 = DefaultTTL on create
	Values []string // one entry per resource record
}

// Update carries the fields to change in UpdateRecord. Nil or empty fields
// are read back from the current record.
type Update struct {
	Values []string
	TTL    *int64
}

// Change is the provider's acknowledgement of a change batch. Status is
// normally PENDING: the batch was accepted, not yet propagated.
type Change struct {
	ID          string
	Status      string
	SubmittedAt time.Time
}

func recordFromSet(rrs *r53types.ResourceRecordSet) *Record {
	r := &Record{
		Name: FQDN(aws.ToString(rrs.Name)),
		Type: string(rrs.Type),
		TTL:  aws.ToInt64(rrs.TTL),
	}
	for _, rr := range rrs.ResourceRecords {
		r.Values = append(r.Values, aws.ToString(rr.Value))
	}
	return r
}

func (r Record) toSet() *r53types.ResourceRecordSet {
	rrs := &r53types.ResourceRecordSet{
		Name: aws.String(FQDN(r.Name)),
		Type: r53types.RRType(r.Type),
		TTL:  aws.Int64(r.TTL),
	}
	for _, v := range r.Values {
		rrs.ResourceRecords = append(rrs.ResourceRecords, r53types.ResourceRecord{Value: aws.String(v)})
	}
	return rrs
}

func changeFromInfo(ci *r53types.ChangeInfo) *Change {
	if ci == nil {
		return &Change{}
	}
	return &Change{
		ID:          aws.ToString(ci.Id),
		Status:      string(ci.Status),
		SubmittedAt: aws.ToTime(ci.SubmittedAt),
	}
}
