package server

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"quizdumps/internal/account"
	"quizdumps/internal/domain"
	"quizdumps/internal/errors"
	"quizdumps/internal/quiz"
	"quizdumps/internal/session"
)

func TestEndToEndQuizFlow(t *testing.T) {
	ts, client := makeServer(t)

	// Register alice.
	resp := postForm(t, client, ts.URL+"/create_account", url.Values{
		"username":  {"alice"},
		"password":  {"pw1"},
		"email":     {"a@b.com"},
		"country":   {"NL"},
		"education": {"BSc"},
		"career":    {"SRE"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "You have successfully registered!")

	// Login redirects to the variety page with the inline message.
	resp = postForm(t, client, ts.URL+"/login", url.Values{
		"username": {"alice"},
		"password": {"pw1"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.Equal(t, "/variety?msg=Logged+in+successfully%21", loc)
	resp.Body.Close()

	resp = get(t, client, ts.URL+loc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Logged in successfully!")

	// Select the devOps category.
	resp = get(t, client, ts.URL+"/select_quiz?selected_quiz=devOps")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "CKA")

	// Start a round over the 3-question pool.
	resp = get(t, client, ts.URL+"/start_round/d1")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/question/1", resp.Header.Get("Location"))
	resp.Body.Close()

	// Answer every question correctly; the fake pool shares one correct
	// option so the shuffle order does not matter.
	for n := 1; n <= 3; n++ {
		resp = get(t, client, ts.URL+"/question/"+strconv.Itoa(n))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = postForm(t, client, ts.URL+"/question/"+strconv.Itoa(n), url.Values{
			"answer": {"corr"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		if n < 3 {
			require.Equal(t, "/question/"+strconv.Itoa(n+1), resp.Header.Get("Location"))
		} else {
			require.Equal(t, "/results", resp.Header.Get("Location"))
		}
		resp.Body.Close()
	}

	resp = get(t, client, ts.URL+"/results")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Your score: 100%")

	// Logout clears identity; /variety bounces back to /login.
	resp = get(t, client, ts.URL+"/logout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Logged out successfully!")

	resp = get(t, client, ts.URL+"/variety")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()
}

func TestRoutes_ErrorPaths(t *testing.T) {
	ts, client := makeServer(t)

	t.Run("wrong password stays on the login page", func(t *testing.T) {
		resp := postForm(t, client, ts.URL+"/login", url.Values{
			"username": {"ghost"},
			"password": {"pw"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body(t, resp), "Incorrect username / password!")
	})

	t.Run("registration with a missing field", func(t *testing.T) {
		resp := postForm(t, client, ts.URL+"/create_account", url.Values{
			"username": {"bob"},
			"password": {"pw"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body(t, resp), "Please fill out the form!")
	})

	t.Run("invalid category renders the error view", func(t *testing.T) {
		resp := get(t, client, ts.URL+"/select_quiz?selected_quiz=gcp")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body(t, resp), "Invalid quiz selection")
	})

	t.Run("start round without a category is a 404", func(t *testing.T) {
		resp := get(t, client, ts.URL+"/start_round/d1")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Contains(t, body(t, resp), "No quiz category selected.")
	})

	t.Run("question without a round flashes and redirects to dumps", func(t *testing.T) {
		resp := get(t, client, ts.URL+"/question/1")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/dumps", resp.Header.Get("Location"))
		resp.Body.Close()

		resp = get(t, client, ts.URL+"/dumps")
		require.Contains(t, body(t, resp), "No questions found.")
	})

	t.Run("out-of-range question redirects to category selection", func(t *testing.T) {
		resp := get(t, client, ts.URL+"/select_quiz?selected_quiz=devOps")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
		resp = get(t, client, ts.URL+"/start_round/d1")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		resp.Body.Close()

		resp = get(t, client, ts.URL+"/question/9")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/select_quiz", resp.Header.Get("Location"))
		resp.Body.Close()
	})

	t.Run("results without answers redirects home", func(t *testing.T) {
		jarless := freshClient(t, ts)
		resp := get(t, jarless, ts.URL+"/results")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/welcome", resp.Header.Get("Location"))
		resp.Body.Close()
	})
}

func TestProbes(t *testing.T) {
	ts, client := makeServer(t)

	resp := get(t, client, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", body(t, resp))

	resp = get(t, client, ts.URL+"/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "READY", body(t, resp))
}

func makeServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	t.Cleanup(func() { rc.Close() })

	e := newRouter(routerConfig{
		Session: session.NewStore(session.Config{Redis: rc}),
		Account: account.NewService(account.Config{Store: newFakeAccounts()}),
		Quiz: quiz.NewService(quiz.Config{
			Catalog: &fakeCatalog{
				quizzes: map[domain.Category][]domain.Quiz{
					domain.CategoryDevOps: {{QuizID: "d1", Category: domain.CategoryDevOps, Title: "CKA", Description: "Kubernetes admin"}},
				},
				questions: map[domain.Category][]domain.Question{
					domain.CategoryDevOps: {
						{Question: "q1", Options: []string{"corr", "b", "c"}, CorrectOption: "corr"},
						{Question: "q2", Options: []string{"d", "corr", "f"}, CorrectOption: "corr"},
						{Question: "q3", Options: []string{"g", "h", "corr"}, CorrectOption: "corr"},
					},
				},
			},
			Rand: rand.New(rand.NewSource(1)),
		}),
	})

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)

	return ts, freshClient(t, ts)
}

func freshClient(t *testing.T, _ *httptest.Server) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, u string) *http.Response {
	t.Helper()
	resp, err := client.Get(u)
	require.NoError(t, err)
	return resp
}

func postForm(t *testing.T, client *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.Post(u, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

type fakeAccounts struct {
	accounts map[string]domain.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]domain.Account)}
}

func (f *fakeAccounts) FindByUsername(_ context.Context, username string) (domain.Account, error) {
	a, ok := f.accounts[username]
	if !ok {
		return domain.Account{}, errors.New(errors.CodeNotFound)
	}
	return a, nil
}

func (f *fakeAccounts) Insert(_ context.Context, a domain.Account) error {
	if _, ok := f.accounts[a.Username]; ok {
		return errors.New(errors.CodeAlreadyExists)
	}
	f.accounts[a.Username] = a
	return nil
}

type fakeCatalog struct {
	dumps     []domain.Dump
	quizzes   map[domain.Category][]domain.Quiz
	questions map[domain.Category][]domain.Question
}

func (f *fakeCatalog) ListDumps(context.Context) ([]domain.Dump, error) {
	return f.dumps, nil
}

func (f *fakeCatalog) ListQuizzes(_ context.Context, c domain.Category) ([]domain.Quiz, error) {
	return f.quizzes[c], nil
}

func (f *fakeCatalog) GetQuiz(_ context.Context, c domain.Category, quizID string) (domain.Quiz, error) {
	for _, q := range f.quizzes[c] {
		if q.QuizID == quizID {
			return q, nil
		}
	}
	return domain.Quiz{}, errors.New(errors.CodeNotFound)
}

func (f *fakeCatalog) FirstQuestionSet(_ context.Context, c domain.Category) ([]domain.Question, error) {
	qs, ok := f.questions[c]
	if !ok {
		return nil, errors.New(errors.CodeNotFound)
	}
	return qs, nil
}
