package main

import (
	"context"
	"database/sql"
	"expvar"
	"log"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/appdotbuilder/junior-science-lms/apps/api/di/dig"
	"github.com/appdotbuilder/junior-science-lms/apps/api/echo"
	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

// apiProcess is the resolved object graph of the API binary.
type apiProcess struct {
	conf     *core.Config
	logger   core.Logger
	dbLogger core.Logger
	db       *sql.DB
	server   *echoapi.Server
}

func startWithDig() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sql.DB,
		validate *validator.Validate,
		translator ut.Translator,
		server *echoapi.Server,
	) {
		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)

		proc := apiProcess{conf: conf, logger: apiLogger, dbLogger: dbLoggerParam.Logger, db: db, server: server}
		proc.run()
	}))
}

func (p apiProcess) run() {
	if syncer, ok := p.logger.(interface{ Sync() }); ok {
		defer syncer.Sync()
	}
	p.logger.Info("starting "+p.conf.AppName+" API", p.buildInfo())

	core.ParseEmailTemplates(p.conf, p.logger)
	user.LoadCommonPasswords(p.conf, p.logger)

	defer p.closeDB()
	defer p.logger.Info(p.conf.AppName + " API stopped")

	p.serveDebug()
	go p.server.Start()
	p.awaitShutdown()
}

func (p apiProcess) buildInfo() map[string]interface{} {
	return map[string]interface{}{"version": p.conf.Build, "env": p.conf.Env, "addr": p.conf.Server.Address}
}

// serveDebug exposes /debug/pprof and /debug/vars on the debug host.
func (p apiProcess) serveDebug() {
	vars := expvar.NewMap("lms")
	for k, v := range p.buildInfo() {
		s := new(expvar.String)
		s.Set(v.(string))
		vars.Set(k, s)
	}

	go func() {
		if err := http.ListenAndServe(p.conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			p.logger.Error("debug server closed", err, map[string]interface{}{"addr": p.conf.Server.DebugHost})
		}
	}()
}

func (p apiProcess) awaitShutdown() {
	select {
	case err := <-p.server.Errors():
		p.logger.Fatal("API server failed", err)

	case sig := <-p.server.ShutdownSignal():
		p.logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})

		// in-flight requests get ShutdownTimeout to finish
		ctx, cancel := context.WithTimeout(context.Background(), p.conf.Server.ShutdownTimeout)
		defer cancel()

		if err := p.server.Shutdown(ctx); err != nil {
			p.logger.Error("graceful shutdown failed", err)
			if err = p.server.Close(); err != nil {
				p.logger.Fatal("forced shutdown failed", err)
			}
		}
	}
}

func (p apiProcess) closeDB() {
	if err := p.db.Close(); err != nil {
		p.dbLogger.Error("closing database", err)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
