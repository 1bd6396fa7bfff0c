package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/sleuthops/sleuth/pkg/models"
)

// Narrow per-service interfaces; the SDK clients satisfy them and tests
// substitute stubs.
type (
	EC2API interface {
		DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
		DescribeVolumes(ctx context.Context, in *ec2.DescribeVolumesInput, opts ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
		DescribeNetworkInterfaces(ctx context.Context, in *ec2.DescribeNetworkInterfacesInput, opts ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error)
	}
	ELBAPI interface {
		DescribeLoadBalancers(ctx context.Context, in *elbv2.DescribeLoadBalancersInput, opts ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	}
	RDSAPI interface {
		DescribeDBInstances(ctx context.Context, in *rds.DescribeDBInstancesInput, opts ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	}
	ECRAPI interface {
		DescribeImages(ctx context.Context, in *ecr.DescribeImagesInput, opts ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
	}
	CloudTrailAPI interface {
		LookupEvents(ctx context.Context, in *cloudtrail.LookupEventsInput, opts ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
	}
)

// Provider is the read-only AWS facade. Service clients come from the shared
// cache keyed by (service, region).
type Provider struct {
	cache  *ClientCache
	logger *slog.Logger

	// Test seams: when non-nil these replace cache-built clients.
	ec2Override        EC2API
	elbOverride        ELBAPI
	rdsOverride        RDSAPI
	ecrOverride        ECRAPI
	cloudtrailOverride CloudTrailAPI
}

// NewProvider creates a provider over the given client cache.
func NewProvider(cache *ClientCache) *Provider {
	return &Provider{cache: cache, logger: slog.Default()}
}

// NewStubbedProvider wires explicit API stubs (tests only).
func NewStubbedProvider(e EC2API, lb ELBAPI, r RDSAPI, cr ECRAPI, ct CloudTrailAPI) *Provider {
	return &Provider{
		logger:             slog.Default(),
		ec2Override:        e,
		elbOverride:        lb,
		rdsOverride:        r,
		ecrOverride:        cr,
		cloudtrailOverride: ct,
	}
}

func classify(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "expired"), strings.Contains(msg, "credentials"):
		return "aws_error:credentials"
	case strings.Contains(msg, "AccessDenied"), strings.Contains(msg, "UnauthorizedOperation"):
		return "aws_error:access_denied"
	case strings.Contains(msg, "Throttling"), strings.Contains(msg, "Rate exceeded"):
		return "aws_error:throttled"
	case strings.Contains(msg, "context deadline exceeded"):
		return "aws_error:timeout"
	default:
		return fmt.Sprintf("aws_error:api:%s", truncate(msg, 120))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (p *Provider) ec2Client(ctx context.Context, region string) (EC2API, error) {
	if p.ec2Override != nil {
		return p.ec2Override, nil
	}
	client, err := p.cache.get(ctx, "ec2", region, func(cfg aws.Config) any {
		return ec2.NewFromConfig(cfg)
	})
	if err != nil {
		return nil, err
	}
	return client.(*ec2.Client), nil
}

func (p *Provider) elbClient(ctx context.Context, region string) (ELBAPI, error) {
	if p.elbOverride != nil {
		return p.elbOverride, nil
	}
	client, err := p.cache.get(ctx, "elasticloadbalancing", region, func(cfg aws.Config) any {
		return elbv2.NewFromConfig(cfg)
	})
	if err != nil {
		return nil, err
	}
	return client.(*elbv2.Client), nil
}

func (p *Provider) rdsClient(ctx context.Context, region string) (RDSAPI, error) {
	if p.rdsOverride != nil {
		return p.rdsOverride, nil
	}
	client, err := p.cache.get(ctx, "rds", region, func(cfg aws.Config) any {
		return rds.NewFromConfig(cfg)
	})
	if err != nil {
		return nil, err
	}
	return client.(*rds.Client), nil
}

func (p *Provider) ecrClient(ctx context.Context, region string) (ECRAPI, error) {
	if p.ecrOverride != nil {
		return p.ecrOverride, nil
	}
	client, err := p.cache.get(ctx, "ecr", region, func(cfg aws.Config) any {
		return ecr.NewFromConfig(cfg)
	})
	if err != nil {
		return nil, err
	}
	return client.(*ecr.Client), nil
}

func (p *Provider) cloudtrailClient(ctx context.Context, region string) (CloudTrailAPI, error) {
	if p.cloudtrailOverride != nil {
		return p.cloudtrailOverride, nil
	}
	client, err := p.cache.get(ctx, "cloudtrail", region, func(cfg aws.Config) any {
		return cloudtrail.NewFromConfig(cfg)
	})
	if err != nil {
		return nil, err
	}
	return client.(*cloudtrail.Client), nil
}

// DescribeInstances returns flattened health summaries for the instance IDs.
func (p *Provider) DescribeInstances(ctx context.Context, region string, instanceIDs []string) ([]models.AWSResource, string) {
	if len(instanceIDs) == 0 {
		return nil, ""
	}
	client, err := p.ec2Client(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: instanceIDs})
	if err != nil {
		return nil, classify(err)
	}
	var resources []models.AWSResource
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			state := ""
			if inst.State != nil {
				state = string(inst.State.Name)
			}
			detail := map[string]string{"instance_type": string(inst.InstanceType)}
			if inst.Placement != nil {
				detail["az"] = aws.ToString(inst.Placement.AvailabilityZone)
			}
			resources = append(resources, models.AWSResource{
				ID:      aws.ToString(inst.InstanceId),
				Type:    "ec2_instance",
				State:   state,
				Healthy: state == "running",
				Detail:  detail,
			})
		}
	}
	return resources, ""
}

// DescribeVolumes returns flattened health summaries for the volume IDs.
func (p *Provider) DescribeVolumes(ctx context.Context, region string, volumeIDs []string) ([]models.AWSResource, string) {
	if len(volumeIDs) == 0 {
		return nil, ""
	}
	client, err := p.ec2Client(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	out, err := client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{VolumeIds: volumeIDs})
	if err != nil {
		return nil, classify(err)
	}
	var resources []models.AWSResource
	for _, vol := range out.Volumes {
		state := string(vol.State)
		resources = append(resources, models.AWSResource{
			ID:      aws.ToString(vol.VolumeId),
			Type:    "ebs_volume",
			State:   state,
			Healthy: state == "in-use" || state == "available",
			Detail: map[string]string{
				"size_gb": strconv.Itoa(int(aws.ToInt32(vol.Size))),
			},
		})
	}
	return resources, ""
}

// DescribeNetworking summarizes network interfaces attached to the instances.
func (p *Provider) DescribeNetworking(ctx context.Context, region string, instanceIDs []string) ([]models.AWSResource, string) {
	if len(instanceIDs) == 0 {
		return nil, ""
	}
	client, err := p.ec2Client(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	out, err := client.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("attachment.instance-id"),
			Values: instanceIDs,
		}},
	})
	if err != nil {
		return nil, classify(err)
	}
	var resources []models.AWSResource
	for _, eni := range out.NetworkInterfaces {
		state := string(eni.Status)
		resources = append(resources, models.AWSResource{
			ID:      aws.ToString(eni.NetworkInterfaceId),
			Type:    "network_interface",
			State:   state,
			Healthy: state == "in-use",
			Detail: map[string]string{
				"private_ip": aws.ToString(eni.PrivateIpAddress),
				"subnet":     aws.ToString(eni.SubnetId),
			},
		})
	}
	return resources, ""
}

// DescribeLoadBalancers returns load balancer state summaries.
func (p *Provider) DescribeLoadBalancers(ctx context.Context, region string) ([]models.AWSResource, string) {
	client, err := p.elbClient(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	out, err := client.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{})
	if err != nil {
		return nil, classify(err)
	}
	var resources []models.AWSResource
	for _, lb := range out.LoadBalancers {
		state := ""
		if lb.State != nil {
			state = string(lb.State.Code)
		}
		resources = append(resources, models.AWSResource{
			ID:      aws.ToString(lb.LoadBalancerName),
			Type:    "load_balancer",
			State:   state,
			Healthy: state == "active",
			Detail: map[string]string{
				"dns_name": aws.ToString(lb.DNSName),
				"scheme":   string(lb.Scheme),
			},
		})
	}
	return resources, ""
}

// DescribeDBInstances returns RDS instance status summaries.
func (p *Provider) DescribeDBInstances(ctx context.Context, region string) ([]models.AWSResource, string) {
	client, err := p.rdsClient(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	out, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{})
	if err != nil {
		return nil, classify(err)
	}
	var resources []models.AWSResource
	for _, db := range out.DBInstances {
		status := aws.ToString(db.DBInstanceStatus)
		resources = append(resources, models.AWSResource{
			ID:      aws.ToString(db.DBInstanceIdentifier),
			Type:    "rds_instance",
			State:   status,
			Healthy: status == "available",
			Detail: map[string]string{
				"engine": aws.ToString(db.Engine),
				"class":  aws.ToString(db.DBInstanceClass),
			},
		})
	}
	return resources, ""
}

// DescribeECRImages returns the most recent image summaries per repository.
func (p *Provider) DescribeECRImages(ctx context.Context, region string, repos []string) ([]models.AWSResource, string) {
	if len(repos) == 0 {
		return nil, ""
	}
	client, err := p.ecrClient(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	var resources []models.AWSResource
	var lastErr string
	for _, repo := range repos {
		out, err := client.DescribeImages(ctx, &ecr.DescribeImagesInput{
			RepositoryName: aws.String(repo),
			MaxResults:     aws.Int32(10),
		})
		if err != nil {
			lastErr = classify(err)
			continue
		}
		for _, img := range out.ImageDetails {
			tag := ""
			if len(img.ImageTags) > 0 {
				tag = img.ImageTags[0]
			}
			detail := map[string]string{"repo": repo, "tag": tag}
			if img.ImagePushedAt != nil {
				detail["pushed_at"] = img.ImagePushedAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			resources = append(resources, models.AWSResource{
				ID:      aws.ToString(img.ImageDigest),
				Type:    "ecr_image",
				Healthy: true,
				Detail:  detail,
			})
		}
	}
	if len(resources) == 0 && lastErr != "" {
		return nil, lastErr
	}
	return resources, ""
}
