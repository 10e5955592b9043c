package user

import (
	"time"

	"github.com/appdotbuilder/junior-science-lms/core"
)

// NewServiceMock returns a Service whose password reset tokens are signed with the test config.
func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	conf := core.NewTestConfig()
	return NewService(conf, repo, mailSvc)
}

// MakeTestToken exposes token generation to other packages' tests.
func MakeTestToken(usr User) string {
	conf := core.NewTestConfig()
	return newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta).MakeToken(usr)
}

// FreezeTime pins NowFunc to t and returns a func that restores it.
func FreezeTime(t time.Time) (restore func()) {
	NowFunc = func() time.Time { return t }
	return func() { NowFunc = time.Now }
}
