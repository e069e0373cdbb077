package describe

// Service bundles the namer and summarizer behind the collaborator interface
// the execution coordinator consumes.
type Service struct {
	namer      *Namer
	summarizer *Summarizer
}

// New creates the default rule-based describe service.
func New() *Service {
	return &Service{
		namer:      NewNamer(),
		summarizer: NewSummarizer(),
	}
}

// Describe converts a tool invocation into a human sentence.
func (s *Service) Describe(toolName string, args map[string]interface{}) string {
	return s.namer.Describe(toolName, args)
}

// Summarize converts an action result into a brief spoken summary.
func (s *Service) Summarize(action string, result interface{}) string {
	return s.summarizer.Summarize(action, result)
}
