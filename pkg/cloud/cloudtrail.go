package cloud

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"

	"github.com/sleuthops/sleuth/pkg/models"
)

// CloudTrail event categories used by the grouped projection.
const (
	CategorySecurityGroup = "security_group"
	CategoryAutoScaling   = "auto_scaling"
	CategoryEC2Lifecycle  = "ec2_lifecycle"
	CategoryIAMPolicy     = "iam_policy"
	CategoryStorage       = "storage"
	CategoryDatabase      = "database"
	CategoryNetworking    = "networking"
	CategoryLoadBalancer  = "load_balancer"
	CategoryOther         = "other"
)

// categorizeEvent buckets one management event by its name and source.
// Order matters: more specific name prefixes win over the source fallback.
func categorizeEvent(name, source string) string {
	switch {
	case strings.Contains(name, "SecurityGroup"):
		return CategorySecurityGroup
	case strings.Contains(name, "AutoScaling"), strings.Contains(name, "LaunchConfiguration"),
		strings.Contains(source, "autoscaling"):
		return CategoryAutoScaling
	case strings.HasPrefix(name, "RunInstances"), strings.HasPrefix(name, "TerminateInstances"),
		strings.HasPrefix(name, "StartInstances"), strings.HasPrefix(name, "StopInstances"),
		strings.HasPrefix(name, "RebootInstances"):
		return CategoryEC2Lifecycle
	case strings.Contains(name, "Policy"), strings.Contains(name, "Role"),
		strings.Contains(source, "iam"):
		return CategoryIAMPolicy
	case strings.Contains(name, "Volume"), strings.Contains(name, "Snapshot"),
		strings.Contains(source, "s3"):
		return CategoryStorage
	case strings.Contains(source, "rds"), strings.Contains(name, "DBInstance"),
		strings.Contains(name, "DBCluster"):
		return CategoryDatabase
	case strings.Contains(name, "LoadBalancer"), strings.Contains(name, "TargetGroup"),
		strings.Contains(source, "elasticloadbalancing"):
		return CategoryLoadBalancer
	case strings.Contains(name, "Subnet"), strings.Contains(name, "Route"),
		strings.Contains(name, "Vpc"), strings.Contains(name, "NetworkInterface"),
		strings.Contains(name, "NatGateway"):
		return CategoryNetworking
	default:
		return CategoryOther
	}
}

// LookupCloudTrail fetches management events in the precursor window,
// chronological, capped at maxEvents, plus the by-category grouping
// (chronological order preserved within each group).
func (p *Provider) LookupCloudTrail(ctx context.Context, region string, lookback time.Duration, maxEvents int) ([]models.CloudTrailEvent, map[string][]models.CloudTrailEvent, string) {
	client, err := p.cloudtrailClient(ctx, region)
	if err != nil {
		return nil, nil, classify(err)
	}

	end := time.Now().UTC()
	start := end.Add(-lookback)
	pageSize := int32(50)
	if maxEvents > 0 && maxEvents < 50 {
		pageSize = int32(maxEvents)
	}

	var events []models.CloudTrailEvent
	var nextToken *string
	for {
		out, err := client.LookupEvents(ctx, &cloudtrail.LookupEventsInput{
			StartTime:  aws.Time(start),
			EndTime:    aws.Time(end),
			MaxResults: aws.Int32(pageSize),
			NextToken:  nextToken,
		})
		if err != nil {
			if len(events) == 0 {
				return nil, nil, classify(err)
			}
			break
		}
		for _, e := range out.Events {
			ev := models.CloudTrailEvent{
				EventName: aws.ToString(e.EventName),
				Username:  aws.ToString(e.Username),
				Source:    aws.ToString(e.EventSource),
			}
			if e.EventTime != nil {
				ev.EventTime = e.EventTime.UTC()
			}
			for _, r := range e.Resources {
				if name := aws.ToString(r.ResourceName); name != "" {
					ev.Resources = append(ev.Resources, name)
				}
			}
			ev.Category = categorizeEvent(ev.EventName, ev.Source)
			events = append(events, ev)
		}
		if maxEvents > 0 && len(events) >= maxEvents {
			events = events[:maxEvents]
			break
		}
		nextToken = out.NextToken
		if nextToken == nil {
			break
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime.Before(events[j].EventTime)
	})

	grouped := make(map[string][]models.CloudTrailEvent)
	for _, ev := range events {
		grouped[ev.Category] = append(grouped[ev.Category], ev)
	}
	return events, grouped, ""
}
