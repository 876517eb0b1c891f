package core

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionCookieName = "app_session"

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, auth *AuthService, catalog *Catalog) *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(mustViews())

	r.Use(SessionMiddleware(auth.Sessions()))

	sessions := auth.Sessions()

	r.GET("/", func(c *gin.Context) {
		sess := currentSession(c)
		if sessions.IsAuthenticated(sess) {
			apply(c, RenderView("home_auth", gin.H{"Name": sess.Name}))
			return
		}
		apply(c, RenderView("home_anon", nil))
	})

	r.GET("/signup", func(c *gin.Context) {
		apply(c, RenderView("signup", nil))
	})

	r.POST("/submitUser", func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			apply(c, RenderView("signup_error", gin.H{"Error": "All information is required."}))
			return
		}
		values := ParseFormValues(c.Request.PostForm)

		token, err := auth.Register(c.Request.Context(), values)
		switch {
		case err == nil:
			setSessionCookie(c, cfg, token, int(sessions.TTL().Seconds()))
			apply(c, RedirectTo("/members"))
		case errors.Is(err, ErrInjectionAttempt):
			apply(c, RenderView("injection_detected", nil))
		case errors.Is(err, ErrInvalidInput):
			apply(c, RenderView("signup_error", gin.H{"Error": "All information is required."}))
		case errors.Is(err, ErrDuplicateAccount):
			apply(c, RenderView("signup_error", gin.H{"Error": "That email is already registered."}))
		default:
			serverError(c, err)
		}
	})

	r.GET("/login", func(c *gin.Context) {
		apply(c, RenderView("login", nil))
	})

	r.POST("/loggingin", func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			apply(c, RenderView("login_error", gin.H{"Error": "Invalid email or password"}))
			return
		}
		values := ParseFormValues(c.Request.PostForm)

		token, err := auth.Login(c.Request.Context(), values)
		switch {
		case err == nil:
			setSessionCookie(c, cfg, token, int(sessions.TTL().Seconds()))
			apply(c, RedirectTo("/members"))
		case errors.Is(err, ErrInjectionAttempt):
			apply(c, RenderView("injection_detected", nil))
		case errors.Is(err, ErrInvalidInput):
			apply(c, RenderView("login_error", gin.H{"Error": "Invalid email or password"}))
		case errors.Is(err, ErrAccountNotFound):
			apply(c, RenderView("login_error", gin.H{"Error": "User not found"}))
		case errors.Is(err, ErrBadCredential):
			apply(c, RenderView("login_error", gin.H{"Error": "Wrong password"}))
		default:
			serverError(c, err)
		}
	})

	r.GET("/loggedin", func(c *gin.Context) {
		if !sessions.IsAuthenticated(currentSession(c)) {
			apply(c, RedirectTo("/login"))
			return
		}
		apply(c, RedirectTo("/members"))
	})

	r.GET("/members", func(c *gin.Context) {
		sess := currentSession(c)
		if !sessions.IsAuthenticated(sess) {
			apply(c, RedirectTo("/"))
			return
		}
		item := catalog.Random()
		apply(c, RenderView("members", gin.H{"Name": sess.Name, "Image": item.Image, "Title": item.Title}))
	})

	r.GET("/logout", func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookieName)
		if err := sessions.Destroy(c.Request.Context(), token); err != nil {
			serverError(c, err)
			return
		}
		setSessionCookie(c, cfg, "", -1)
		apply(c, RenderView("logout", nil))
	})

	r.GET("/cat/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			notFound(c)
			return
		}
		item, ok := catalog.ByID(id)
		if !ok {
			notFound(c)
			return
		}
		apply(c, RenderView("catalog_item", gin.H{"Title": item.Title, "Image": item.Image}))
	})

	r.GET("/nosql-injection", func(c *gin.Context) {
		values := ParseFormValues(c.Request.URL.Query())
		if _, ok := values["user"]; !ok {
			apply(c, RenderView("injection_usage", gin.H{
				"Hint": "/nosql-injection?user=name or /nosql-injection?user[$ne]=name",
			}))
			return
		}

		accounts, err := auth.LookupByName(c.Request.Context(), values)
		switch {
		case err == nil:
			log.Printf("name lookup matched %d account(s)", len(accounts))
			apply(c, RenderView("hello_user", gin.H{"User": values["user"].Scalar}))
		case errors.Is(err, ErrInjectionAttempt), errors.Is(err, ErrInvalidInput):
			apply(c, RenderView("injection_detected", nil))
		default:
			serverError(c, err)
		}
	})

	r.NoRoute(func(c *gin.Context) {
		notFound(c)
	})

	return r
}

// SessionMiddleware resolves the session cookie to a server-side session and
// attaches it to the request context. Anonymous is attached when there is no
// usable session; only a store failure aborts the request.
func SessionMiddleware(sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookieName)
		sess, err := sessions.Load(c.Request.Context(), token)
		if err != nil {
			serverError(c, err)
			c.Abort()
			return
		}
		c.Set("session", sess)
		c.Next()
	}
}

// currentSession returns the session attached by SessionMiddleware, or
// Anonymous if the middleware did not run.
func currentSession(c *gin.Context) Session {
	sessAny, ok := c.Get("session")
	if !ok {
		return Anonymous
	}
	sess, _ := sessAny.(Session)
	return sess
}

// apply interprets a tagged Result: redirect or render.
func apply(c *gin.Context, res Result) {
	if res.Redirect != "" {
		c.Redirect(http.StatusFound, res.Redirect)
		return
	}
	data := res.Data
	if data == nil {
		data = map[string]any{}
	}
	c.HTML(http.StatusOK, res.View, data)
}

func setSessionCookie(c *gin.Context, cfg Config, token string, maxAge int) {
	c.SetSameSite(sameSiteFromString(cfg.CookieSameSite))
	c.SetCookie(sessionCookieName, token, maxAge, "/", "", cfg.CookieSecure, true)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// serverError logs the cause and renders the generic failure page. Store
// outages are fatal to the request, never to the process.
func serverError(c *gin.Context, err error) {
	log.Printf("request failed: %v", err)
	c.HTML(http.StatusInternalServerError, "server_error", gin.H{})
}

func notFound(c *gin.Context) {
	c.String(http.StatusNotFound, "Page not found - 404")
}
