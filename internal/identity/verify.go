package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/smithy-go"
)

// IAMAPI is the subset of the IAM client used to introspect the caller.
type IAMAPI interface {
	GetUser(ctx context.Context, params *iam.GetUserInput, optFns ...func(*iam.Options)) (*iam.GetUserOutput, error)
}

// User describes the principal behind a verified credential pair.
type User struct {
	Name string
	ARN  string
}

// Verify issues a single identity-introspection call. Any failure (auth,
// network, throttling) yields false; the cause is returned alongside so the
// caller can report it.
func Verify(ctx context.Context, api IAMAPI) (bool, *User, error) {
	out, err := api.GetUser(ctx, &iam.GetUserInput{})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return false, nil, fmt.Errorf("identity: verify: %s: %w", apiErr.ErrorCode(), err)
		}
		return false, nil, fmt.Errorf("identity: verify: %w", err)
	}

	u := &User{}
	if out.User != nil {
		u.Name = aws.ToString(out.User.UserName)
		u.ARN = aws.ToString(out.User.Arn)
	}
	return true, u, nil
}

// VerifyAWS builds an IAM client from c and verifies it.
func (c *Context) VerifyAWS(ctx context.Context) (bool, *User, error) {
	cfg, err := c.AWSConfig(ctx)
	if err != nil {
		return false, nil, err
	}
	return Verify(ctx, iam.NewFromConfig(cfg))
}
