package session

import (
	"regexp"
	"strconv"
	"strings"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// FileData is one user-provided attachment. Data is carried as raw bytes
// and serializes to base64 in JSON.
type FileData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// KeyFact is a single extracted (label, value) pair.
type KeyFact struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// KeyFactCategory groups related facts under a category name.
type KeyFactCategory struct {
	Category string    `json:"category"`
	Facts    []KeyFact `json:"facts"`
}

// TaxSituation is one discrete tax issue requiring its own research pass.
// ID is derived from Title via SlugID; equal slugs identify the same topic.
type TaxSituation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Justification is an optional secondary-source reference.
type Justification struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// LawReference cites one primary authority.
type LawReference struct {
	Citation    string `json:"citation"`
	Description string `json:"description"`
}

// Implication is one consequence of the analyzed law.
type Implication struct {
	Implication   string         `json:"implication"`
	Justification *Justification `json:"justification,omitempty"`
}

// Opportunity is one planning opportunity surfaced by research.
type Opportunity struct {
	Opportunity   string         `json:"opportunity"`
	Justification *Justification `json:"justification,omitempty"`
}

// ResearchAnalysis is the structured result of researching one situation.
// The core transports and validates it; field content is collaborator-owned.
type ResearchAnalysis struct {
	SituationTitle        string         `json:"situationTitle"`
	Summary               string         `json:"summary"`
	ApplicableLaw         []LawReference `json:"applicableLaw"`
	KeyImplications       []Implication  `json:"keyImplications"`
	PlanningOpportunities []Opportunity  `json:"planningOpportunities"`
}

// DocumentKind selects the generated document flavor.
type DocumentKind string

const (
	DocumentMemo   DocumentKind = "memo"
	DocumentLetter DocumentKind = "letter"
)

// GeneratedDocument is a client-facing artifact produced from an analysis.
type GeneratedDocument struct {
	Kind    DocumentKind `json:"type"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
}

// Objective is one actionable case goal, possibly decomposed into
// sub-objectives. The shape is a genuine tree; ids are assigned by
// AssignObjectiveIDs and are stable for a given tree.
type Objective struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	SubObjectives []Objective `json:"subObjectives,omitempty"`
}

// Message is one turn in the conversation. Optional payload fields are
// present only on messages that deliver the corresponding result; message
// content is the sole source of truth for workflow progress.
type Message struct {
	Role             Role               `json:"role"`
	Text             string             `json:"text"`
	FilesData        []FileData         `json:"filesData,omitempty"`
	KeyFacts         []KeyFactCategory  `json:"keyFacts,omitempty"`
	TaxSituations    []TaxSituation     `json:"taxSituations,omitempty"`
	ResearchAnalysis *ResearchAnalysis  `json:"researchAnalysis,omitempty"`
	GeneratedDoc     *GeneratedDocument `json:"generatedDocument,omitempty"`
	Objectives       []Objective        `json:"objectives,omitempty"`
	IsKeyFactsUpdate bool               `json:"isKeyFactsUpdate,omitempty"`
	NewTaxSituation  *TaxSituation      `json:"newTaxSituation,omitempty"`
	IsHidden         bool               `json:"isHidden,omitempty"`
}

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^\w-]+`)
)

// SlugID derives a deterministic situation id from a title: lower-case,
// whitespace to hyphens, everything outside [word, hyphen] stripped. Titles
// differing only in case or punctuation collide on purpose; the collision is
// treated as de-duplication of the same topic.
func SlugID(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugInvalid.ReplaceAllString(s, "")
}

// NewTaxSituation builds a situation with its derived id.
func NewTaxSituation(title, description string) TaxSituation {
	return TaxSituation{
		ID:          SlugID(title),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
}

// AssignObjectiveIDs walks the tree and assigns path-based ids: each node
// gets its slugified title plus sibling index, prefixed with its parent's
// id. Equally-titled nodes in different subtrees therefore stay distinct,
// which matters because completion marks are keyed by id.
func AssignObjectiveIDs(objectives []Objective) []Objective {
	return assignObjectiveIDs(objectives, "")
}

func assignObjectiveIDs(objectives []Objective, parentID string) []Objective {
	out := make([]Objective, len(objectives))
	for i, o := range objectives {
		base := SlugID(o.Title)
		if base == "" {
			base = "objective"
		}
		o.ID = base + "-" + strconv.Itoa(i)
		if parentID != "" {
			o.ID = parentID + "-" + o.ID
		}
		o.SubObjectives = assignObjectiveIDs(o.SubObjectives, o.ID)
		out[i] = o
	}
	return out
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.FilesData != nil {
		out.FilesData = make([]FileData, len(m.FilesData))
		for i, f := range m.FilesData {
			out.FilesData[i] = FileData{MimeType: f.MimeType, Data: append([]byte(nil), f.Data...)}
		}
	}
	out.KeyFacts = cloneKeyFacts(m.KeyFacts)
	out.TaxSituations = append([]TaxSituation(nil), m.TaxSituations...)
	if m.ResearchAnalysis != nil {
		cloned := m.ResearchAnalysis.Clone()
		out.ResearchAnalysis = &cloned
	}
	if m.GeneratedDoc != nil {
		doc := *m.GeneratedDoc
		out.GeneratedDoc = &doc
	}
	out.Objectives = CloneObjectives(m.Objectives)
	if m.NewTaxSituation != nil {
		sit := *m.NewTaxSituation
		out.NewTaxSituation = &sit
	}
	return out
}

// Clone returns a deep copy of the analysis.
func (a ResearchAnalysis) Clone() ResearchAnalysis {
	out := a
	out.ApplicableLaw = append([]LawReference(nil), a.ApplicableLaw...)
	out.KeyImplications = make([]Implication, len(a.KeyImplications))
	for i, imp := range a.KeyImplications {
		out.KeyImplications[i] = imp
		if imp.Justification != nil {
			j := *imp.Justification
			out.KeyImplications[i].Justification = &j
		}
	}
	out.PlanningOpportunities = make([]Opportunity, len(a.PlanningOpportunities))
	for i, opp := range a.PlanningOpportunities {
		out.PlanningOpportunities[i] = opp
		if opp.Justification != nil {
			j := *opp.Justification
			out.PlanningOpportunities[i].Justification = &j
		}
	}
	return out
}

// CloneObjectives deep-copies an objectives tree.
func CloneObjectives(objectives []Objective) []Objective {
	if objectives == nil {
		return nil
	}
	out := make([]Objective, len(objectives))
	for i, o := range objectives {
		o.SubObjectives = CloneObjectives(o.SubObjectives)
		out[i] = o
	}
	return out
}

func cloneKeyFacts(categories []KeyFactCategory) []KeyFactCategory {
	if categories == nil {
		return nil
	}
	out := make([]KeyFactCategory, len(categories))
	for i, c := range categories {
		c.Facts = append([]KeyFact(nil), c.Facts...)
		out[i] = c
	}
	return out
}
