package doctor

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// AWSCredentialsCheck verifies the default credential chain yields
// credentials for the configured region.
type AWSCredentialsCheck struct {
	Config aws.Config
}

func (c *AWSCredentialsCheck) Name() string     { return "aws_credentials" }
func (c *AWSCredentialsCheck) Category() string { return CategoryAWS }

func (c *AWSCredentialsCheck) Run(ctx context.Context) CheckResult {
	if c.Config.Region == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No AWS region configured",
			Suggestion: "Set region in the config file or export AWS_REGION",
		}
	}
	if c.Config.Credentials == nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No AWS credential provider configured",
			Suggestion: "Configure credentials: aws configure",
		}
	}

	creds, err := c.Config.Credentials.Retrieve(ctx)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Can't load AWS credentials: %v", err),
			Suggestion: "Check your profile or environment: aws sts get-caller-identity",
		}
	}

	if creds.CanExpire && !creds.Expires.IsZero() {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("Credentials from %s (region %s, expire %s)", creds.Source, c.Config.Region, creds.Expires.Format("15:04 MST")),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Credentials from %s (region %s)", creds.Source, c.Config.Region),
	}
}
