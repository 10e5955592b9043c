package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/appdotbuilder/junior-science-lms/apps/api/echo"
	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/dashboard"
	"github.com/appdotbuilder/junior-science-lms/core/user"
	"github.com/appdotbuilder/junior-science-lms/services/email"
	"github.com/appdotbuilder/junior-science-lms/services/logger"
	"github.com/appdotbuilder/junior-science-lms/testutil"
)

const pwd = "Passw0rd!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	fx  *testutil.Fixtures
	srv *echoapi.Server
}

func setup(t *testing.T) env {
	conf := core.NewTestConfig()
	conf.WorkDir = core.Getwd()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	core.ParseEmailTemplates(conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	fx := testutil.NewFixtures(t)
	usrSvc := user.NewServiceMock(fx.UserRepo, emailsvc.NewConsoleServiceMock())
	courseSvc := course.NewService(nil, fx.CourseRepo, fx.ContentRepo, usrSvc)
	dashSvc := dashboard.NewService(conf, nil, usrSvc, courseSvc, fx.ContentRepo, logger)

	srv := echoapi.NewServer(conf, logger, echoapi.Deps{
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		CourseSvc:  courseSvc,
		DashSvc:    dashSvc,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return env{fx: fx, srv: srv}
}

func (e env) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	e.srv.ServeHTTP(rec, req)
}

func (e env) getToken(t *testing.T, usr user.User) string {
	auth := e.srv.Authenticator()
	token, err := auth.GenerateToken(auth.GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	checkCode(t, tt, rec)
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// fieldErrors decodes a 400 response into its field names.
func fieldErrors(t *testing.T, rec *httptest.ResponseRecorder) []string {
	var errs map[string]string
	unmarshall(t, rec, &errs)
	flds := make([]string, 0, len(errs))
	for fld := range errs {
		flds = append(flds, fld)
	}
	return flds
}

func runTests(t *testing.T, e env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			e.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func userNames(t *testing.T, rec *httptest.ResponseRecorder) []string {
	var users []user.User
	unmarshall(t, rec, &users)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return names
}
