// Command acadkeeper manages the academic records store from the command
// line: accounts, classes, grades and the native-module export.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"acadkeeper/internal/config"
	"acadkeeper/internal/crypto/fieldcrypt"
	"acadkeeper/internal/export"
	"acadkeeper/internal/model"
	"acadkeeper/internal/service"
	"acadkeeper/internal/store"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usage = `acadkeeper <command> [flags]

commands:
  register      create a user account
  login         authenticate and print a session token
  create-class  create a named class
  enroll        assign a student to a class
  set-grades    write one subject's scores plus the project score
  show-grades   print a student's grade report
  delete-user   remove a user (cascades to the student record)
  export        pack records and run the native module
  version       print build info
`

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	crypt := fieldcrypt.New(cfg.KeyPath)
	st := store.New(cfg.DataPath, crypt)
	exp := export.New(crypt, cfg.ExportBin, cfg.ExportList, cfg.ModulePath, cfg.ModuleTimeout, logger)
	svc := service.NewAccountService(st, crypt, exp, []byte(cfg.SessionSecret), cfg.SessionTTL, logger)

	ctx := context.Background()

	var res service.Result
	switch os.Args[1] {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		login := fs.String("login", "", "login (required)")
		password := fs.String("password", "", "password (required)")
		name := fs.String("name", "", "full name (required)")
		role := fs.String("role", "student", "student|teacher|admin")
		_ = fs.Parse(os.Args[2:])
		res = svc.Register(*login, *password, *name, model.Role(*role))

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		login := fs.String("login", "", "login")
		password := fs.String("password", "", "password")
		_ = fs.Parse(os.Args[2:])
		sess, err := svc.Authenticate(*login, *password)
		if err != nil {
			fail("login failed")
		}
		fmt.Printf("role: %s\ntoken: %s\nexpires: %s\n", sess.Role, sess.Token, sess.ExpiresAt.Format("15:04:05"))
		return

	case "create-class":
		fs := flag.NewFlagSet("create-class", flag.ExitOnError)
		name := fs.String("name", "", "class display name")
		_ = fs.Parse(os.Args[2:])
		res = svc.CreateClass(*name)

	case "enroll":
		fs := flag.NewFlagSet("enroll", flag.ExitOnError)
		login := fs.String("login", "", "student login")
		class := fs.String("class", "", "class id")
		_ = fs.Parse(os.Args[2:])
		res = svc.Enroll(*login, *class)

	case "set-grades":
		fs := flag.NewFlagSet("set-grades", flag.ExitOnError)
		login := fs.String("login", "", "student login")
		subject := fs.String("subject", model.SubjectNative, "subject code")
		first := fs.Float64("first", 0, "first partial score")
		second := fs.Float64("second", 0, "second partial score")
		project := fs.Float64("project", 0, "global project score")
		_ = fs.Parse(os.Args[2:])
		res = svc.UpdateGrades(*login, *subject, *first, *second, *project)

	case "show-grades":
		fs := flag.NewFlagSet("show-grades", flag.ExitOnError)
		login := fs.String("login", "", "student login")
		_ = fs.Parse(os.Args[2:])
		rep, err := svc.StudentReport(*login)
		if err != nil {
			fail(fmt.Sprintf("no report: %v", err))
		}
		printReport(rep)
		return

	case "delete-user":
		fs := flag.NewFlagSet("delete-user", flag.ExitOnError)
		login := fs.String("login", "", "login to delete")
		_ = fs.Parse(os.Args[2:])
		res = svc.DeleteUser(*login)

	case "export":
		res = svc.RunExport(ctx)

	case "version":
		fmt.Printf("acadkeeper %s (%s)\n", version, buildDate)
		return

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	fmt.Println(res.Message)
	if !res.OK {
		os.Exit(1)
	}
}

func printReport(rep service.Report) {
	fmt.Printf("%s (RA %s) class=%s project=%.2f\n", rep.Name, rep.RA, rep.ClassID, rep.Project)
	for _, s := range rep.Subjects {
		fmt.Printf("  %-22s first=%5.2f second=%5.2f avg=%5.2f %s\n",
			s.Subject, s.First, s.Second, s.Average, s.Status)
	}
	if rep.HasOverall {
		fmt.Printf("overall average: %.2f\n", rep.Overall)
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
