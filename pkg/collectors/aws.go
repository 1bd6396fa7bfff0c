package collectors

import (
	"context"
	"regexp"

	"github.com/sleuthops/sleuth/pkg/models"
)

// ecrImagePattern matches ECR image references and captures account, region,
// and repository name.
var ecrImagePattern = regexp.MustCompile(`(\d{12})\.dkr\.ecr\.([a-z0-9-]+)\.amazonaws\.com/([^:@\s]+)`)

// ExtractAWSMetadata discovers the cloud resource identifiers tied to the
// target, in precedence order: alert labels, the pod's node name, then ECR
// references in container images. Lists are deduplicated; the region falls
// back to the configured default.
func ExtractAWSMetadata(inv *models.Investigation, defaultRegion string) *models.AWSMetadata {
	meta := &models.AWSMetadata{Region: defaultRegion}

	labels := inv.Alert.Labels
	if id := labels["instance_id"]; id != "" {
		meta.InstanceIDs = append(meta.InstanceIDs, id)
		meta.Source = "alert_labels"
	}
	if id := labels["volume_id"]; id != "" {
		meta.VolumeIDs = append(meta.VolumeIDs, id)
		if meta.Source == "" {
			meta.Source = "alert_labels"
		}
	}
	if region := labels["region"]; region != "" {
		meta.Region = region
	}

	if k8s := inv.Evidence.K8s; k8s != nil && k8s.PodInfo != nil {
		pod := k8s.PodInfo
		if pod.NodeName != "" {
			meta.NodeNames = append(meta.NodeNames, pod.NodeName)
			if meta.Source == "" {
				meta.Source = "node_name"
			}
		}
		for _, image := range pod.Images {
			m := ecrImagePattern.FindStringSubmatch(image)
			if m == nil {
				continue
			}
			meta.ECRRepos = append(meta.ECRRepos, m[3])
			if labels["region"] == "" {
				meta.Region = m[2]
			}
			if meta.Source == "" {
				meta.Source = "container_images"
			}
		}
	}

	meta.InstanceIDs = dedup(meta.InstanceIDs)
	meta.VolumeIDs = dedup(meta.VolumeIDs)
	meta.ECRRepos = dedup(meta.ECRRepos)
	meta.NodeNames = dedup(meta.NodeNames)
	return meta
}

// CollectAWS fills the cloud slot: resource health for everything the
// metadata names, plus the CloudTrail precursor window. Requires the K8s
// slot to be filled first (it reads node and image metadata), so the
// pipeline runs it after the K8s collector joins.
func CollectAWS(ctx context.Context, deps *Deps, inv *models.Investigation) {
	if deps.Cloud == nil || deps.Settings == nil {
		return
	}
	meta := ExtractAWSMetadata(inv, deps.Settings.AWSRegion)
	aws := &models.AWSEvidence{Metadata: meta}
	inv.Evidence.AWS = aws
	region := meta.Region

	if len(meta.InstanceIDs) > 0 {
		instances, code := deps.Cloud.DescribeInstances(ctx, region, meta.InstanceIDs)
		if code != "" {
			inv.AddError("aws", code)
		} else {
			aws.EC2Instances = instances
		}
		networking, code := deps.Cloud.DescribeNetworking(ctx, region, meta.InstanceIDs)
		if code != "" {
			inv.AddError("aws", code)
		} else {
			aws.Networking = networking
		}
	}
	if len(meta.VolumeIDs) > 0 {
		volumes, code := deps.Cloud.DescribeVolumes(ctx, region, meta.VolumeIDs)
		if code != "" {
			inv.AddError("aws", code)
		} else {
			aws.EBSVolumes = volumes
		}
	}
	if len(meta.ECRRepos) > 0 {
		images, code := deps.Cloud.DescribeECRImages(ctx, region, meta.ECRRepos)
		if code != "" {
			inv.AddError("aws", code)
		} else {
			aws.ECRImages = images
		}
	}

	lookback := deps.Settings.CloudTrailLookback
	maxEvents := deps.Settings.CloudTrailMaxEvents
	events, grouped, code := deps.Cloud.LookupCloudTrail(ctx, region, lookback, maxEvents)
	ctMeta := &models.CloudTrailMetadata{
		LookbackMinutes: int(lookback.Minutes()),
		MaxEvents:       maxEvents,
		Region:          region,
	}
	switch {
	case code != "":
		ctMeta.Status = models.StatusUnavailable
		ctMeta.Reason = code
		inv.AddError("aws", code)
	case len(events) == 0:
		ctMeta.Status = models.StatusEmpty
	default:
		ctMeta.Status = models.StatusOK
		aws.CloudTrailEvents = events
		aws.CloudTrailGrouped = grouped
	}
	aws.CloudTrailMetadata = ctMeta
}

func dedup(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := map[string]bool{}
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
