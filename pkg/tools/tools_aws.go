package tools

import (
	"context"
	"strings"

	"github.com/sleuthops/sleuth/pkg/models"
)

// resolveRegion picks the effective region: explicit arg, then the
// discovered metadata, then the configured default, and checks it against
// the policy allowlist.
func (d *Dispatcher) resolveRegion(req Request, inv *models.Investigation) (string, string) {
	region := req.Args.String("region")
	if region == "" {
		if aws := inv.Evidence.AWS; aws != nil && aws.Metadata != nil {
			region = aws.Metadata.Region
		}
	}
	if region == "" && d.deps.Settings != nil {
		region = d.deps.Settings.AWSRegion
	}
	if region == "" {
		return "", "missing_required_args:region"
	}
	if !allowed(req.Policy.AWSRegionAllowlist, region) {
		return "", "region_not_allowed:" + region
	}
	return region, ""
}

// idsFromArgsOrMetadata reads a list argument ("instance_ids") or its
// singular form ("instance_id"), falling back to the discovered metadata.
func idsFromArgs(req Request, plural, singular string, discovered []string) []string {
	if raw, isList := req.Args[plural].([]any); isList {
		var ids []string
		for _, v := range raw {
			if s, isString := v.(string); isString && s != "" {
				ids = append(ids, s)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}
	if id := req.Args.String(singular); id != "" {
		return strings.Split(id, ",")
	}
	return discovered
}

func (d *Dispatcher) awsMetadata(inv *models.Investigation) *models.AWSMetadata {
	if aws := inv.Evidence.AWS; aws != nil && aws.Metadata != nil {
		return aws.Metadata
	}
	return &models.AWSMetadata{}
}

func (d *Dispatcher) awsEC2Status(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Cloud == nil {
		return fail("aws_error:not_configured")
	}
	region, code := d.resolveRegion(req, inv)
	if code != "" {
		return fail(code)
	}
	ids := idsFromArgs(req, "instance_ids", "instance_id", d.awsMetadata(inv).InstanceIDs)
	if len(ids) == 0 {
		return fail("missing_required_args:instance_id")
	}
	resources, errCode := d.deps.Cloud.DescribeInstances(ctx, region, ids)
	if errCode != "" {
		return fail(errCode)
	}
	return ok(map[string]any{"region": region, "instances": resources})
}

func (d *Dispatcher) awsVolumeStatus(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Cloud == nil {
		return fail("aws_error:not_configured")
	}
	region, code := d.resolveRegion(req, inv)
	if code != "" {
		return fail(code)
	}
	ids := idsFromArgs(req, "volume_ids", "volume_id", d.awsMetadata(inv).VolumeIDs)
	if len(ids) == 0 {
		return fail("missing_required_args:volume_id")
	}
	resources, errCode := d.deps.Cloud.DescribeVolumes(ctx, region, ids)
	if errCode != "" {
		return fail(errCode)
	}
	return ok(map[string]any{"region": region, "volumes": resources})
}

func (d *Dispatcher) awsELBHealth(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Cloud == nil {
		return fail("aws_error:not_configured")
	}
	region, code := d.resolveRegion(req, inv)
	if code != "" {
		return fail(code)
	}
	resources, errCode := d.deps.Cloud.DescribeLoadBalancers(ctx, region)
	if errCode != "" {
		return fail(errCode)
	}
	return ok(map[string]any{"region": region, "load_balancers": resources})
}

func (d *Dispatcher) awsRDSStatus(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Cloud == nil {
		return fail("aws_error:not_configured")
	}
	region, code := d.resolveRegion(req, inv)
	if code != "" {
		return fail(code)
	}
	resources, errCode := d.deps.Cloud.DescribeDBInstances(ctx, region)
	if errCode != "" {
		return fail(errCode)
	}
	return ok(map[string]any{"region": region, "db_instances": resources})
}

func (d *Dispatcher) awsECRImages(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Cloud == nil {
		return fail("aws_error:not_configured")
	}
	region, code := d.resolveRegion(req, inv)
	if code != "" {
		return fail(code)
	}
	repos := idsFromArgs(req, "repos", "repo", d.awsMetadata(inv).ECRRepos)
	if len(repos) == 0 {
		return fail("missing_required_args:repo")
	}
	resources, errCode := d.deps.Cloud.DescribeECRImages(ctx, region, repos)
	if errCode != "" {
		return fail(errCode)
	}
	return ok(map[string]any{"region": region, "images": resources})
}

func (d *Dispatcher) awsCloudTrail(ctx context.Context, req Request, inv *models.Investigation) ToolResult {
	if d.deps.Cloud == nil || d.deps.Settings == nil {
		return fail("aws_error:not_configured")
	}
	region, code := d.resolveRegion(req, inv)
	if code != "" {
		return fail(code)
	}
	lookback := d.deps.Settings.CloudTrailLookback
	maxEvents := clamp(req.Args.Int("max_events", d.deps.Settings.CloudTrailMaxEvents), 1, 200)

	events, grouped, errCode := d.deps.Cloud.LookupCloudTrail(ctx, region, lookback, maxEvents)
	if errCode != "" {
		return fail(errCode)
	}
	return ok(map[string]any{
		"region":  region,
		"events":  events,
		"grouped": grouped,
	})
}
