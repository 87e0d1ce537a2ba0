package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
)

// RollbarLogger reports to Rollbar and writes structured logs with zap.
type RollbarLogger struct {
	zl *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewZapLogger returns a development (console) logger in debug mode, a JSON one otherwise.
func NewZapLogger(conf *core.Config) (*zap.Logger, error) {
	if conf.Debug || conf.TestMode {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.InitialFields = map[string]interface{}{"app": conf.AppName, "build": conf.Build, "env": conf.Env}
	return zc.Build()
}

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{zl: zl.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes the buffered logs & waits for the pending Rollbar reports.
func (l *RollbarLogger) Sync() {
	rollbar.Wait()
	_ = l.zl.Sync()
}

// expected fmt: msg | error, map[string]interface{}, account.Account
func (l *RollbarLogger) prepare(msg string, args []interface{}) (rbArgs []interface{}, kvs []interface{}) {
	var accSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for i, arg := range args {
		switch a := arg.(type) {
		case account.Account:
			// only set one Account
			if !accSet {
				rollbar.SetPerson(a.ID, a.Name, a.Email)
				kvs = append(kvs, "account", a.ID)
				accSet = true
			}
			continue
		case error:
			kvs = append(kvs, "error", fmt.Sprintf("%+v", a))
		case map[string]interface{}:
			for k, v := range a {
				kvs = append(kvs, k, v)
			}
		default:
			kvs = append(kvs, fmt.Sprintf("arg%d", i), a)
		}
		rbArgs = append(rbArgs, arg)
	}
	if !accSet {
		rollbar.ClearPerson()
	}
	return rbArgs, kvs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.zl.Debugw(msg, kvs...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.zl.Infow(msg, kvs...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.zl.Warnw(msg, kvs...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.zl.Errorw(msg, kvs...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, kvs := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	l.zl.Fatalw(msg, kvs...)
}
