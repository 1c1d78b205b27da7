// Package model defines domain entities used by the store, services and exporter.
package model

import "encoding/json"

// Role tags a user account. No authorization policy hangs off it beyond the
// tag itself.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

// SubjectProject is the distinguished cross-subject project grade. It is a
// single scalar shared by every subject's average.
const SubjectProject = "PIM"

// SubjectNative is the one subject whose raw scores are handed to the native
// grade module.
const SubjectNative = "PROG_ESTRUT_C"

// Subjects lists the standard (non-project) subject codes of the course.
var Subjects = []string{
	"ENG_SOFT_AGIL",
	"ALGOR_ESTRUT_PYTHON",
	SubjectNative,
	"ANALISE_PROJ_SIST",
	"PESQ_TEC_INOV",
	"EDU_AMBIENTAL",
	"REDES_DISTRIB",
	"INTELIGENCIA_ART",
	"ESTUDOS_DISCIPLINARES",
}

// ClassNone marks a student not assigned to any class.
const ClassNone = "none"

// User is an account entry. The verifier is a one-way hash, never reversible.
type User struct {
	Hash string `json:"hash"` // password verifier
	Role Role   `json:"role"`
}

// SubjectScores holds the two partial assessment scores of a standard subject.
type SubjectScores struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
}

// GradeSheet maps subject codes to raw scores. Project is the single scalar
// project grade; Subjects holds the first/second pair of every other subject.
// AverageCache mirrors previously computed per-subject averages but is never
// authoritative: readers recompute from raw scores.
type GradeSheet struct {
	Project      float64                  `json:"project"`
	Subjects     map[string]SubjectScores `json:"subjects"`
	AverageCache map[string]float64       `json:"average_cache,omitempty"`
}

// NewGradeSheet returns a sheet with every subject zeroed.
func NewGradeSheet() GradeSheet {
	subs := make(map[string]SubjectScores, len(Subjects))
	for _, code := range Subjects {
		subs[code] = SubjectScores{}
	}
	return GradeSheet{Subjects: subs}
}

// Student is the per-student record linked to a User by login. Deleting the
// User cascades to this record. Name and RA are stored encrypted.
type Student struct {
	Login   string     `json:"login"`
	NameEnc string     `json:"name_enc"`
	RAEnc   string     `json:"ra_enc"`
	ClassID string     `json:"class_id"` // ClassNone when unassigned
	Grades  GradeSheet `json:"grades"`
}

// Class is a named group of students. ID is a short random hex token.
type Class struct {
	ID   string `json:"id"`
	Name string `json:"name"` // unique
}

// Document is the whole persisted dataset. It is read fully before any
// mutation and rewritten in full afterwards. Unknown top-level fields found
// on read are kept verbatim and written back (forward compatibility).
type Document struct {
	Users    map[string]User `json:"users"`
	Students []Student       `json:"students"`
	Classes  []Class         `json:"classes"`

	extra map[string]json.RawMessage
}

// NewDocument returns an empty document with initialized containers.
func NewDocument() *Document {
	return &Document{
		Users:    make(map[string]User),
		Students: []Student{},
		Classes:  []Class{},
	}
}

// FindStudent returns the student record for login, or nil.
func (d *Document) FindStudent(login string) *Student {
	for i := range d.Students {
		if d.Students[i].Login == login {
			return &d.Students[i]
		}
	}
	return nil
}

// FindClassByName returns the class with the given display name, or nil.
func (d *Document) FindClassByName(name string) *Class {
	for i := range d.Classes {
		if d.Classes[i].Name == name {
			return &d.Classes[i]
		}
	}
	return nil
}

// UnmarshalJSON decodes the known document fields and stashes any unknown
// top-level fields for round-trip preservation.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = *NewDocument()
	if v, ok := raw["users"]; ok {
		if err := json.Unmarshal(v, &d.Users); err != nil {
			return err
		}
		delete(raw, "users")
	}
	if v, ok := raw["students"]; ok {
		if err := json.Unmarshal(v, &d.Students); err != nil {
			return err
		}
		delete(raw, "students")
	}
	if v, ok := raw["classes"]; ok {
		if err := json.Unmarshal(v, &d.Classes); err != nil {
			return err
		}
		delete(raw, "classes")
	}
	if len(raw) > 0 {
		d.extra = raw
	}
	return nil
}

// MarshalJSON encodes the document including any preserved unknown fields.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, 3+len(d.extra))
	for k, v := range d.extra {
		out[k] = v
	}

	users, err := json.Marshal(d.Users)
	if err != nil {
		return nil, err
	}
	students, err := json.Marshal(d.Students)
	if err != nil {
		return nil, err
	}
	classes, err := json.Marshal(d.Classes)
	if err != nil {
		return nil, err
	}
	out["users"] = users
	out["students"] = students
	out["classes"] = classes
	return json.Marshal(out)
}
