package servereval

type State string

const (
	StateDisabled       State = "disabled"
	StateRequested      State = "requested"
	StateTooShort       State = "too_short"
	StateNotContributor State = "not_contributor"
	StateRequestButton  State = "request_button"
	StateReady          State = "ready"
)

// DefaultMinMainlinePlies is the shortest mainline worth analysing.
const DefaultMinMainlinePlies = 5

// ViewState is what the panel shows.
type ViewState struct {
	State      State    `json:"state"`
	AnalysisID string   `json:"analysis_id,omitempty"`
	Messages   []string `json:"messages,omitempty"`
	Button     string   `json:"button,omitempty"`
	Spinner    bool     `json:"spinner,omitempty"`
}

type Translator interface {
	Noarg(key string) string
}

// Messages is a key to text table. Unknown keys translate to themselves.
type Messages map[string]string

func (m Messages) Noarg(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

var English = Messages{
	"computerAnalysisDisabled":           "You disabled computer analysis.",
	"theChapterIsTooShortToBeAnalysed":   "The chapter is too short to be analysed.",
	"onlyContributorsCanRequestAnalysis": "Only the study contributors can request a computer analysis.",
	"getAFullComputerAnalysis":           "Get a full server-side computer analysis of the mainline.",
	"makeSureTheChapterIsComplete":       "Make sure the chapter is complete. You can only request analysis once.",
	"requestAComputerAnalysis":           "Request a computer analysis",
}

// View picks the panel state for the hosting board.
func View(c *Controller, root Root, tr Translator, minPlies int) ViewState {
	if minPlies <= 0 {
		minPlies = DefaultMinMainlinePlies
	}
	if !root.ShowComputer() {
		return ViewState{State: StateDisabled, Messages: []string{tr.Noarg("computerAnalysisDisabled")}}
	}

	data := root.Data()
	if data.Analysis != nil {
		return ViewState{State: StateReady, AnalysisID: data.Analysis.ID, Spinner: true}
	}
	if c.Requested() {
		return ViewState{State: StateRequested, Spinner: true}
	}

	switch {
	case len(data.Mainline) < minPlies:
		return ViewState{State: StateTooShort, Messages: []string{tr.Noarg("theChapterIsTooShortToBeAnalysed")}}
	case !root.CanContribute():
		return ViewState{State: StateNotContributor, Messages: []string{tr.Noarg("onlyContributorsCanRequestAnalysis")}}
	}
	return ViewState{
		State: StateRequestButton,
		Messages: []string{
			tr.Noarg("getAFullComputerAnalysis"),
			tr.Noarg("makeSureTheChapterIsComplete"),
		},
		Button: tr.Noarg("requestAComputerAnalysis"),
	}
}
