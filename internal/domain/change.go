package domain

// EdgeChange is one changed relation in the code graph, with the strength of
// the edge between the entity and the changed partner.
type EdgeChange struct {
	Ref        string  `json:"ref,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ChangeContext summarizes what changed around an entity since its knowledge
// was generated.
type ChangeContext struct {
	DirectlyModified  bool         `json:"directly_modified"`
	DependencyChanges []EdgeChange `json:"dependency_changes,omitempty"`
	CallGraphChanges  []EdgeChange `json:"call_graph_changes,omitempty"`
	CochangeChanges   []EdgeChange `json:"cochange_changes,omitempty"`
}
