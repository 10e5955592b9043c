package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/appdotbuilder/junior-science-lms/apps/api/echo"
	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/content"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/dashboard"
	"github.com/appdotbuilder/junior-science-lms/core/user"
	"github.com/appdotbuilder/junior-science-lms/services/email"
	"github.com/appdotbuilder/junior-science-lms/services/logger"
	"github.com/appdotbuilder/junior-science-lms/storage/database"
	"github.com/appdotbuilder/junior-science-lms/storage/database/sqlboiler"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams gathers what echoapi.NewServer needs.
type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	DB         core.DB
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    user.Service
	CourseSvc  course.Service
	DashSvc    dashboard.Service
}

func newRollbarLogger(conf *core.Config, name string) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf.Env).Named(name), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "API")
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "DB")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DB) {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newUserRepository(db core.DB) user.Repository {
	return boiledrepos.NewUserRepository(db)
}

func newCourseRepository(db core.DB) course.Repository {
	return boiledrepos.NewCourseRepository(db)
}

func newContentRepository(db core.DB) content.Repository {
	return boiledrepos.NewContentRepository(db)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, p.Logger, echoapi.Deps{
		DB:         p.DB,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		CourseSvc:  p.CourseSvc,
		DashSvc:    p.DashSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newUserRepository))
	must(c.Provide(newCourseRepository))
	must(c.Provide(newContentRepository))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
