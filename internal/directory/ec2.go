package directory

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

// EC2 lists running instances through ec2:DescribeInstances.
type EC2 struct {
	api ec2.DescribeInstancesAPIClient
}

// NewEC2 builds a directory backed by the EC2 API in cfg's region.
func NewEC2(cfg aws.Config) *EC2 {
	return &EC2{api: ec2.NewFromConfig(cfg)}
}

// NewEC2WithClient is NewEC2 over an existing client.
func NewEC2WithClient(api ec2.DescribeInstancesAPIClient) *EC2 {
	return &EC2{api: api}
}

// ListRunning pages through running instances whose Name tag matches any
// filter. EC2 evaluates * and ? wildcards in the filter values.
func (d *EC2) ListRunning(ctx context.Context, nameFilters []string) ([]fleet.Target, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{"running"}},
		},
	}
	if len(nameFilters) > 0 {
		input.Filters = append(input.Filters, ec2types.Filter{
			Name:   aws.String("tag:Name"),
			Values: nameFilters,
		})
	}

	targets := []fleet.Target{}
	seen := make(map[string]bool)
	pager := ec2.NewDescribeInstancesPaginator(d.api, input)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrDirectory,
				"Couldn't list EC2 instances",
				"Check your AWS credentials, region, and ec2:DescribeInstances permission")
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				id := aws.ToString(inst.InstanceId)
				if id == "" || seen[id] {
					continue
				}
				seen[id] = true
				targets = append(targets, fleet.Target{ID: id, Name: nameTag(inst.Tags)})
			}
		}
	}
	return targets, nil
}

func nameTag(tags []ec2types.Tag) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == "Name" {
			return aws.ToString(t.Value)
		}
	}
	return ""
}
