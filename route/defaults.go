package route

// Route names referenced by the session and guard.
const (
	NameHome     = "Home"
	NameLogin    = "Login"
	NameRegister = "Register"
	NameNotFound = "NotFound"
)

// DefaultTable returns the application's route set.
func DefaultTable() *Table {
	t, err := NewTable(defaultRoutes())
	if err != nil {
		panic("route: default table: " + err.Error())
	}
	return t
}

func defaultRoutes() []Descriptor {
	return []Descriptor{
		{Path: "/", Name: NameHome, Meta: Meta{Title: "Home"}},
		{Path: "/achievements", Name: "Achievements", Meta: Meta{Title: "Achievements"}},
		{Path: "/achievements/create", Name: "AchievementCreate", Meta: Meta{Title: "Add Achievement", RequiresAuth: true}},
		{Path: "/achievements/:id", Name: "AchievementDetail", Meta: Meta{Title: "Achievement Detail", RequiresAuth: true}},
		{Path: "/achievements/:id/edit", Name: "AchievementEdit", Meta: Meta{Title: "Edit Achievement", RequiresAuth: true}},
		{Path: "/tech_summaries", Name: "TechSummaries", Meta: Meta{Title: "Tech Summaries"}},
		{Path: "/tech_summaries/create", Name: "TechSummaryCreate", Meta: Meta{Title: "Add Tech Summary", RequiresAuth: true}},
		{Path: "/tech_summaries/:id", Name: "TechSummaryDetail", Meta: Meta{Title: "Tech Summary Detail"}},
		{Path: "/tech_summaries/:id/edit", Name: "TechSummaryEdit", Meta: Meta{Title: "Edit Tech Summary", RequiresAuth: true}},
		{Path: "/profile", Name: "Profile", Meta: Meta{Title: "Profile", RequiresAuth: true}},
		{Path: "/knowledge_chat", Name: "KnowledgeChat", Meta: Meta{Title: "Knowledge Chat"}},
		{Path: "/ollama_chat", Name: "OllamaChat", Meta: Meta{Title: "Ollama Chat"}},
		{Path: "/auth/login", Name: NameLogin, Meta: Meta{Title: "Login"}},
		{Path: "/auth/register", Name: NameRegister, Meta: Meta{Title: "Register"}},
		{Path: CatchAll, Name: NameNotFound, Meta: Meta{Title: "Page Not Found"}},
	}
}
