package contextbuilder

// NoopSkills is used when no skills catalog is configured; both blocks are
// empty and are dropped by BuildSystemPrompt.
type NoopSkills struct{}

func (NoopSkills) ActiveSkillBodies() string { return "" }
func (NoopSkills) Catalog() string           { return "" }
