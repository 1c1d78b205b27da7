// Package store persists the academic records document and owns its schema
// invariants.
//
// The document is the sole shared mutable resource: every mutation reloads it
// in full, changes it in memory and rewrites it in full. There is no file
// lock and no version stamp, so two concurrent writers lose updates (last
// writer wins, silently). That limitation is accepted for the single-process
// model; the upgrade path is a lock around load+save or a version check at
// save time.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"acadkeeper/internal/crypto"
	"acadkeeper/internal/crypto/fieldcrypt"
	"acadkeeper/internal/errs"
	"acadkeeper/internal/grades"
	"acadkeeper/internal/model"
)

// Reserved identifiers handed to the first students, in creation order.
var reservedRAs = [...]int{1234567, 9876543, 1122334}

// Bootstrap accounts never count toward reserved identifier allocation.
var bootstrapLogins = map[string]bool{
	"admin":     true,
	"professor": true,
}

// Store reads and writes the whole document at a fixed path.
type Store struct {
	path  string
	crypt *fieldcrypt.Keeper
}

// New returns a Store over the document at path, using crypt for sensitive
// fields.
func New(path string, crypt *fieldcrypt.Keeper) *Store {
	return &Store{path: path, crypt: crypt}
}

// Load reads the persisted document. A missing file yields an empty document;
// unparsable content yields errs.ErrCorruptDocument.
func (s *Store) Load() (*model.Document, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", s.path, errs.ErrCorruptDocument)
	}
	return doc, nil
}

// Save serializes doc and overwrites the persisted document in full. No
// partial commit is attempted: on failure the on-disk state is undefined and
// the in-memory changes of the calling operation are lost.
func (s *Store) Save(doc *model.Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", errs.ErrPersistence)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", s.path, errs.ErrPersistence)
	}
	return nil
}

// CreateUser registers a login. ok is false when the login is already taken;
// the stored data is untouched in that case. Students additionally get an
// allocated identifier (encrypted), an encrypted display name and a zeroed
// grade sheet.
func (s *Store) CreateUser(login, password, displayName string, role model.Role) (bool, error) {
	doc, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, taken := doc.Users[login]; taken {
		return false, nil
	}

	doc.Users[login] = model.User{
		Hash: crypto.HashPassword(password),
		Role: role,
	}

	if role == model.RoleStudent {
		ra, err := s.allocateRA(doc)
		if err != nil {
			return false, err
		}
		nameEnc, err := s.crypt.Encrypt(displayName)
		if err != nil {
			return false, err
		}
		raEnc, err := s.crypt.Encrypt(fmt.Sprintf("%d", ra))
		if err != nil {
			return false, err
		}
		doc.Students = append(doc.Students, model.Student{
			Login:   login,
			NameEnc: nameEnc,
			RAEnc:   raEnc,
			ClassID: model.ClassNone,
			Grades:  model.NewGradeSheet(),
		})
	}

	if err := s.Save(doc); err != nil {
		return false, err
	}
	return true, nil
}

// allocateRA hands out the reserved identifiers to the first students, then
// draws random 7-digit numbers. Uniqueness of random draws is not enforced;
// collisions are accepted as vanishingly unlikely.
func (s *Store) allocateRA(doc *model.Document) (int, error) {
	count := 0
	for _, st := range doc.Students {
		if !bootstrapLogins[st.Login] {
			count++
		}
	}
	if count < len(reservedRAs) {
		return reservedRAs[count], nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(9000000))
	if err != nil {
		return 0, fmt.Errorf("draw identifier: %w", err)
	}
	return int(n.Int64()) + 1000000, nil
}

// CreateClass adds a class under a fresh random ID. ok is false when a class
// with that display name already exists.
func (s *Store) CreateClass(name string) (model.Class, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return model.Class{}, false, err
	}
	if doc.FindClassByName(name) != nil {
		return model.Class{}, false, nil
	}

	id, err := classToken()
	if err != nil {
		return model.Class{}, false, err
	}
	c := model.Class{ID: id, Name: name}
	doc.Classes = append(doc.Classes, c)
	if err := s.Save(doc); err != nil {
		return model.Class{}, false, err
	}
	return c, true, nil
}

// classToken returns a short random hex identifier.
func classToken() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("class token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// EnrollStudent assigns the student with the given login to classID. Returns
// errs.ErrNotFound when no student record exists for login.
func (s *Store) EnrollStudent(login, classID string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	st := doc.FindStudent(login)
	if st == nil {
		return fmt.Errorf("student %q: %w", login, errs.ErrNotFound)
	}
	st.ClassID = classID
	return s.Save(doc)
}

// DeleteUser removes the login and cascades removal of its student record.
// Succeeds even when no student record exists (admin/teacher logins have
// none). Returns errs.ErrNotFound for an unknown login.
func (s *Store) DeleteUser(login string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := doc.Users[login]; !ok {
		return fmt.Errorf("user %q: %w", login, errs.ErrNotFound)
	}
	delete(doc.Users, login)

	kept := doc.Students[:0]
	for _, st := range doc.Students {
		if st.Login != login {
			kept = append(kept, st)
		}
	}
	doc.Students = kept
	return s.Save(doc)
}

// UpdateGrades writes the first/second pair of one standard subject and the
// global project score for a student, then refreshes the derived average
// cache. The cache is convenience output only; readers recompute from raw
// scores.
func (s *Store) UpdateGrades(login, subject string, first, second, project float64) error {
	if subject == model.SubjectProject {
		return fmt.Errorf("subject %q takes a single scalar score", subject)
	}

	doc, err := s.Load()
	if err != nil {
		return err
	}
	st := doc.FindStudent(login)
	if st == nil {
		return fmt.Errorf("student %q: %w", login, errs.ErrNotFound)
	}
	if _, ok := st.Grades.Subjects[subject]; !ok {
		return fmt.Errorf("subject %q: %w", subject, errs.ErrNotFound)
	}

	st.Grades.Subjects[subject] = model.SubjectScores{First: first, Second: second}
	st.Grades.Project = project
	st.Grades.AverageCache = grades.SheetAverages(st.Grades)
	return s.Save(doc)
}
