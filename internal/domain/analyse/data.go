package analyse

// Node is one position of the mainline.
type Node struct {
	Ply int    `json:"ply"`
	Fen string `json:"fen"`
	San string `json:"san,omitempty"`
}

// Eval is the server evaluation of one mainline position, from white's side.
type Eval struct {
	Cp   *int `json:"cp,omitempty" bson:"cp,omitempty"`
	Mate *int `json:"mate,omitempty" bson:"mate,omitempty"`
}

// Analysis is the server computed analysis of a chapter mainline.
// Evals[i] belongs to the position at ply TreeRootPly+i+1.
type Analysis struct {
	ID    string `json:"id"`
	Evals []Eval `json:"evals"`
}

type Data struct {
	TreeRootPly int       `json:"tree_root_ply"`
	Mainline    []Node    `json:"mainline"`
	Analysis    *Analysis `json:"analysis,omitempty"`
}

// Progress is pushed by the server while an analysis is computed and once it is done.
type Progress struct {
	ChapterID string   `json:"ch"`
	Analysis  Analysis `json:"analysis"`
}
