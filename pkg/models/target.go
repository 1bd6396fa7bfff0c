package models

// TargetType classifies what kind of infrastructure object an alert points at.
type TargetType string

const (
	TargetTypePod     TargetType = "pod"
	TargetTypeService TargetType = "service"
	TargetTypeNode    TargetType = "node"
	TargetTypeCluster TargetType = "cluster"
	TargetTypeUnknown TargetType = "unknown"
)

// TargetRef identifies the object under investigation. Fields are filled
// progressively: alert labels first, then collectors. A non-empty field is
// only replaced by a higher-trust source (owner-chain writes may replace
// label-derived workload values).
type TargetRef struct {
	Cluster      string     `json:"cluster,omitempty"`
	Namespace    string     `json:"namespace,omitempty"`
	Pod          string     `json:"pod,omitempty"`
	Container    string     `json:"container,omitempty"`
	WorkloadKind string     `json:"workload_kind,omitempty"`
	WorkloadName string     `json:"workload_name,omitempty"`
	Service      string     `json:"service,omitempty"`
	Job          string     `json:"job,omitempty"`
	Instance     string     `json:"instance,omitempty"`
	Team         string     `json:"team,omitempty"`
	Environment  string     `json:"environment,omitempty"`
	Playbook     string     `json:"playbook,omitempty"`
	TargetType   TargetType `json:"target_type"`
}

// IsPodScoped reports whether the target resolves to a concrete pod.
func (t *TargetRef) IsPodScoped() bool {
	return t.TargetType == TargetTypePod && t.Pod != "" && t.Namespace != ""
}
