// Package service contains the application service over the record store:
// authentication, account lifecycle and the export trigger.
//
// Per the error policy, every public operation catches store-, crypto- and
// export-level failures at this boundary and converts them into a Result
// value. Callers are never handed a raw I/O or decoding fault.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "acadkeeper/internal/crypto"
	"acadkeeper/internal/crypto/fieldcrypt"
	"acadkeeper/internal/errs"
	"acadkeeper/internal/export"
	"acadkeeper/internal/grades"
	"acadkeeper/internal/model"
	"acadkeeper/internal/store"
)

// Session identifies an authenticated caller. It replaces the old global
// logged-in-user state: operations that need the caller receive a Session
// explicitly.
type Session struct {
	ID        uuid.UUID
	Login     string
	Role      model.Role
	Token     string // signed HS256 session token
	ExpiresAt time.Time
}

// Result is the outcome of a boundary operation: a success flag plus an
// operator-facing message.
type Result struct {
	OK      bool
	Message string
}

// sessionClaims carries the role alongside the registered JWT claims.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccountService orchestrates store mutations and export runs. It adds no
// state of its own beyond the session signing key.
type AccountService struct {
	store      *store.Store
	crypt      *fieldcrypt.Keeper
	exporter   *export.Exporter
	signKey    []byte
	sessionTTL time.Duration
	log        *zap.Logger
}

// NewAccountService constructs the service with required dependencies.
func NewAccountService(st *store.Store, crypt *fieldcrypt.Keeper, exp *export.Exporter, signKey []byte, sessionTTL time.Duration, log *zap.Logger) *AccountService {
	return &AccountService{
		store:      st,
		crypt:      crypt,
		exporter:   exp,
		signKey:    signKey,
		sessionTTL: sessionTTL,
		log:        log,
	}
}

// Authenticate compares the supplied password's one-way hash against the
// stored verifier and, on success, issues a signed session. Unknown logins
// and wrong passwords are both reported as errs.ErrUnauthorized.
func (s *AccountService) Authenticate(login, password string) (Session, error) {
	doc, err := s.store.Load()
	if err != nil {
		return Session{}, err
	}
	u, ok := doc.Users[login]
	if !ok || !pkgcrypto.VerifyPassword(password, u.Hash) {
		return Session{}, errs.ErrUnauthorized
	}

	id, err := uuid.NewV4()
	if err != nil {
		return Session{}, err
	}
	now := time.Now()
	exp := now.Add(s.sessionTTL)
	claims := sessionClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, Login: login, Role: u.Role, Token: signed, ExpiresAt: exp}, nil
}

// VerifySession validates a session token and returns its login and role.
func (s *AccountService) VerifySession(token string) (string, model.Role, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signKey, nil
	})
	if err != nil || !tok.Valid {
		return "", "", errs.ErrUnauthorized
	}
	return claims.Subject, model.Role(claims.Role), nil
}

// Register creates a user account.
func (s *AccountService) Register(login, password, displayName string, role model.Role) Result {
	if login == "" || password == "" || displayName == "" {
		return Result{Message: "login, password and name are all required"}
	}
	if !role.Valid() {
		return Result{Message: fmt.Sprintf("unknown role %q", role)}
	}
	ok, err := s.store.CreateUser(login, password, displayName, role)
	if err != nil {
		return s.failure("register", err)
	}
	if !ok {
		return Result{Message: fmt.Sprintf("login %q already exists", login)}
	}
	return Result{OK: true, Message: fmt.Sprintf("user %q registered", login)}
}

// CreateClass creates a named class.
func (s *AccountService) CreateClass(name string) Result {
	if name == "" {
		return Result{Message: "class name is required"}
	}
	c, ok, err := s.store.CreateClass(name)
	if err != nil {
		return s.failure("create class", err)
	}
	if !ok {
		return Result{Message: fmt.Sprintf("class %q already exists", name)}
	}
	return Result{OK: true, Message: fmt.Sprintf("class %q created (id %s)", c.Name, c.ID)}
}

// Enroll assigns a student to a class.
func (s *AccountService) Enroll(login, classID string) Result {
	if err := s.store.EnrollStudent(login, classID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Result{Message: fmt.Sprintf("no student record for %q", login)}
		}
		return s.failure("enroll", err)
	}
	return Result{OK: true, Message: fmt.Sprintf("%q enrolled in class %s", login, classID)}
}

// DeleteUser removes a user and its student record.
func (s *AccountService) DeleteUser(login string) Result {
	if err := s.store.DeleteUser(login); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Result{Message: fmt.Sprintf("user %q does not exist", login)}
		}
		return s.failure("delete user", err)
	}
	return Result{OK: true, Message: fmt.Sprintf("user %q deleted", login)}
}

// UpdateGrades writes one subject's scores plus the global project score.
func (s *AccountService) UpdateGrades(login, subject string, first, second, project float64) Result {
	if err := s.store.UpdateGrades(login, subject, first, second, project); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Result{Message: fmt.Sprintf("grades not updated: %v", err)}
		}
		return s.failure("update grades", err)
	}
	return Result{OK: true, Message: fmt.Sprintf("grades saved for %q", login)}
}

// RunExport packs the current document for the native module and runs it.
func (s *AccountService) RunExport(ctx context.Context) Result {
	doc, err := s.store.Load()
	if err != nil {
		return s.failure("export", err)
	}
	res, err := s.exporter.Export(ctx, doc)
	switch {
	case errors.Is(err, errs.ErrNoEligibleRecords):
		return Result{Message: "no identifiers to export"}
	case errors.Is(err, errs.ErrModuleMissing):
		return Result{Message: "native module executable not found"}
	case errors.Is(err, errs.ErrModuleFailed):
		return Result{Message: fmt.Sprintf("native module failed: %v", err)}
	case err != nil:
		return s.failure("export", err)
	}
	return Result{OK: true, Message: fmt.Sprintf("exported %d records, native module ok", res.Records)}
}

// SubjectReport is one row of a student's grade report.
type SubjectReport struct {
	Subject string
	First   float64
	Second  float64
	Average float64
	Status  grades.Status
}

// Report is a student's decrypted grade report. Overall is meaningful only
// when HasOverall is true (at least one standard subject exists).
type Report struct {
	Login      string
	Name       string
	RA         string
	ClassID    string
	Project    float64
	Subjects   []SubjectReport
	Overall    float64
	HasOverall bool
}

// StudentReport decrypts a student's identity fields and recomputes every
// average from raw scores. Fields that fail to decrypt come back blank
// rather than failing the report.
func (s *AccountService) StudentReport(login string) (Report, error) {
	doc, err := s.store.Load()
	if err != nil {
		return Report{}, err
	}
	st := doc.FindStudent(login)
	if st == nil {
		return Report{}, fmt.Errorf("student %q: %w", login, errs.ErrNotFound)
	}

	rep := Report{Login: login, ClassID: st.ClassID, Project: st.Grades.Project}
	if name, err := s.crypt.Decrypt(st.NameEnc); err == nil {
		rep.Name = name
	}
	if ra, err := s.crypt.Decrypt(st.RAEnc); err == nil {
		rep.RA = ra
	}

	avgs := grades.SheetAverages(st.Grades)
	all := make([]float64, 0, len(avgs))
	for _, code := range model.Subjects {
		scores, ok := st.Grades.Subjects[code]
		if !ok {
			continue
		}
		avg := avgs[code]
		rep.Subjects = append(rep.Subjects, SubjectReport{
			Subject: code,
			First:   scores.First,
			Second:  scores.Second,
			Average: avg,
			Status:  grades.StatusOf(avg),
		})
		all = append(all, avg)
	}
	rep.Overall, rep.HasOverall = grades.OverallAverage(all)
	return rep, nil
}

// failure logs the underlying fault and returns a generic operator message.
func (s *AccountService) failure(op string, err error) Result {
	s.log.Error(op, zap.Error(err))
	if errors.Is(err, errs.ErrCorruptDocument) {
		return Result{Message: "stored data is unreadable; operator attention required"}
	}
	return Result{Message: fmt.Sprintf("%s failed: %v", op, err)}
}
