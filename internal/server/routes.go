package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quizdumps/internal/account"
	"quizdumps/internal/domain"
	"quizdumps/internal/errors"
	"quizdumps/internal/quiz"
	"quizdumps/internal/session"
)

type routerConfig struct {
	Session *session.Store
	Account *account.Service
	Quiz    *quiz.Service

	// Ready reports whether the backing stores answer; nil disables the
	// readiness probe body check.
	Ready func(ctx context.Context) error
}

func newRouter(c routerConfig) *gin.Engine {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.SetHTMLTemplate(templates())

	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	e.GET("/ready", func(ctx *gin.Context) {
		if c.Ready != nil {
			if err := c.Ready(ctx.Request.Context()); err != nil {
				slog.ErrorContext(ctx.Request.Context(), "server: not ready", "error", err)
				ctx.String(http.StatusInternalServerError, "NOT READY")
				return
			}
		}
		ctx.String(http.StatusOK, "READY")
	})

	h := &handlers{account: c.Account, quiz: c.Quiz}

	web := e.Group("", c.Session.Middleware())
	web.GET("/", h.welcome)
	web.GET("/welcome", h.welcome)
	web.GET("/create_account", h.createAccount)
	web.POST("/create_account", h.createAccount)
	web.GET("/login", h.login)
	web.POST("/login", h.login)
	web.GET("/logout", h.logout)
	web.GET("/variety", h.variety)
	web.GET("/dumps", h.dumps)
	web.GET("/select_quiz", h.selectQuiz)
	web.GET("/play_quiz/:quiz_id", h.playQuiz)
	web.GET("/start_round/:quiz_id", h.startRound)
	web.POST("/start_round/:quiz_id", h.startRound)
	web.GET("/question/:question_num", h.question)
	web.POST("/question/:question_num", h.question)
	web.GET("/results", h.results)

	return e
}

type handlers struct {
	account *account.Service
	quiz    *quiz.Service
}

func (h *handlers) welcome(c *gin.Context) {
	c.HTML(http.StatusOK, "welcome.html", gin.H{
		"Flashes": session.FromContext(c).Flashes(),
	})
}

func (h *handlers) createAccount(c *gin.Context) {
	msg := ""
	if c.Request.Method == http.MethodPost {
		msg = h.register(c)
	}

	c.HTML(http.StatusOK, "create_account.html", gin.H{"Msg": msg})
}

// register returns the inline form message for a submission.
func (h *handlers) register(c *gin.Context) string {
	fields := make(map[string]string, 6)
	for _, name := range []string{"username", "password", "email", "country", "education", "career"} {
		v, ok := c.GetPostForm(name)
		if !ok {
			return "Please fill out the form!"
		}
		fields[name] = v
	}

	_, err := h.account.Register(c.Request.Context(), account.RegisterRequest{
		Username:  fields["username"],
		Password:  fields["password"],
		Email:     fields["email"],
		Country:   fields["country"],
		Education: fields["education"],
		Career:    fields["career"],
	})
	switch {
	case err == nil:
		return "You have successfully registered!"
	case errors.Is(err, errors.CodeAlreadyExists), errors.Is(err, errors.CodeInvalidArgument):
		return errors.Convert(err).Message
	default:
		slog.ErrorContext(c.Request.Context(), "server: register failed", "error", err)
		return "Something went wrong, please try again."
	}
}

func (h *handlers) login(c *gin.Context) {
	msg := ""
	username, hasUser := c.GetPostForm("username")
	password, hasPass := c.GetPostForm("password")

	if c.Request.Method == http.MethodPost && hasUser && hasPass {
		a, err := h.account.Authenticate(c.Request.Context(), username, password)
		switch {
		case err == nil:
			sess := session.FromContext(c)
			sess.SetIdentity(a.AccountID, a.Username)
			q := url.Values{"msg": {"Logged in successfully!"}}
			c.Redirect(http.StatusFound, "/variety?"+q.Encode())
			return
		case errors.Is(err, errors.CodeUnauthenticated):
			msg = errors.Convert(err).Message
		default:
			slog.ErrorContext(c.Request.Context(), "server: login failed", "error", err)
			c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
			return
		}
	}

	c.HTML(http.StatusOK, "login.html", gin.H{"Msg": msg})
}

func (h *handlers) logout(c *gin.Context) {
	session.FromContext(c).ClearIdentity()

	c.HTML(http.StatusOK, "login.html", gin.H{
		"Msg":            "Logged out successfully!",
		"ShowReturnHome": true,
	})
}

func (h *handlers) variety(c *gin.Context) {
	sess := session.FromContext(c)
	if !sess.LoggedIn() {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.HTML(http.StatusOK, "variety.html", gin.H{"Msg": c.Query("msg")})
}

func (h *handlers) dumps(c *gin.Context) {
	sess := session.FromContext(c)

	buckets, err := h.quiz.ListDumps(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "server: list dumps failed", "error", err)
		c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
		return
	}

	c.HTML(http.StatusOK, "dumps.html", gin.H{
		"DumpLists": buckets,
		"Flashes":   sess.Flashes(),
	})
}

func (h *handlers) selectQuiz(c *gin.Context) {
	sess := session.FromContext(c)
	selected := domain.Category(c.Query("selected_quiz"))

	quizzes, err := h.quiz.SelectQuiz(c.Request.Context(), sess, selected)
	if errors.Is(err, errors.CodeInvalidArgument) {
		c.HTML(http.StatusOK, "error.html", gin.H{"Message": errors.Convert(err).Message})
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "server: select quiz failed", "error", err)
		c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
		return
	}

	c.HTML(http.StatusOK, "select_quiz.html", gin.H{
		"QuizDetails":  quizzes,
		"SelectedQuiz": selected,
		"Flashes":      sess.Flashes(),
	})
}

func (h *handlers) playQuiz(c *gin.Context) {
	sess := session.FromContext(c)

	q, err := h.quiz.PlayQuiz(c.Request.Context(), sess, c.Param("quiz_id"))
	if err != nil {
		e := errors.Convert(err)
		if e.Code != errors.CodeNotFound {
			slog.ErrorContext(c.Request.Context(), "server: play quiz failed", "error", err)
		}
		c.HTML(e.HTTPStatusCode(), "error.html", gin.H{"Message": e.Message})
		return
	}

	c.HTML(http.StatusOK, "play_quiz.html", gin.H{"Quiz": q})
}

func (h *handlers) startRound(c *gin.Context) {
	sess := session.FromContext(c)

	if _, ok := sess.SelectedQuiz(); !ok {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Message": "No quiz category selected."})
		return
	}

	err := h.quiz.StartRound(c.Request.Context(), sess, c.Param("quiz_id"))
	if errors.Is(err, errors.CodeNotFound) {
		sess.AddFlash(errors.Convert(err).Message)
		c.Redirect(http.StatusFound, "/select_quiz")
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "server: start round failed", "error", err)
		c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
		return
	}

	// Always question 1, whatever the shuffle produced.
	c.Redirect(http.StatusFound, "/question/1")
}

func (h *handlers) question(c *gin.Context) {
	sess := session.FromContext(c)

	n, err := strconv.Atoi(c.Param("question_num"))
	if err != nil {
		sess.AddFlash("Invalid question number.")
		c.Redirect(http.StatusFound, "/select_quiz")
		return
	}

	if c.Request.Method == http.MethodPost {
		var answer *string
		if v, ok := c.GetPostForm("answer"); ok {
			answer = &v
		}

		next, done, err := h.quiz.RecordAnswer(sess, n, answer)
		if h.redirectRoundError(c, sess, err) {
			return
		}
		if done {
			c.Redirect(http.StatusFound, "/results")
			return
		}
		c.Redirect(http.StatusFound, "/question/"+strconv.Itoa(next))
		return
	}

	q, total, err := h.quiz.QuestionAt(sess, n)
	if h.redirectRoundError(c, sess, err) {
		return
	}

	c.HTML(http.StatusOK, "question.html", gin.H{
		"QuestionNum":    n,
		"Question":       q.Question,
		"OptionsList":    q.Options,
		"TotalQuestions": total,
	})
}

// redirectRoundError maps round-navigation failures onto the flash and
// redirect pair the pages expect. It reports whether it handled err.
func (h *handlers) redirectRoundError(c *gin.Context, sess *session.Session, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errors.CodeNotFound):
		sess.AddFlash(errors.Convert(err).Message)
		c.Redirect(http.StatusFound, "/dumps")
	case errors.Is(err, errors.CodeInvalidArgument):
		sess.AddFlash(errors.Convert(err).Message)
		c.Redirect(http.StatusFound, "/select_quiz")
	default:
		slog.ErrorContext(c.Request.Context(), "server: question failed", "error", err)
		c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
	}
	return true
}

func (h *handlers) results(c *gin.Context) {
	sess := session.FromContext(c)

	res, err := h.quiz.Results(c.Request.Context(), sess, sess.Username())
	if errors.Is(err, errors.CodeNotFound) {
		sess.AddFlash(errors.Convert(err).Message)
		c.Redirect(http.StatusFound, "/welcome")
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "server: results failed", "error", err)
		c.AbortWithStatus(errors.Convert(err).HTTPStatusCode())
		return
	}

	c.HTML(http.StatusOK, "results.html", gin.H{
		"Score":        res.Score,
		"ResultsData":  res.Breakdown,
		"TotalCorrect": res.TotalCorrect,
		"TotalWrong":   res.TotalWrong,
	})
}
