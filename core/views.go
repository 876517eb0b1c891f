package core

import "html/template"

// The view layer is deliberately plain: small inline templates, no styling
// pipeline. Handlers never write HTML directly; they produce a Result and the
// router renders it here.
const viewsText = `
{{define "home_anon"}}
<button onclick="window.location.href='/signup'">Sign Up</button><br>
<button onclick="window.location.href='/login'">Log In</button>
{{end}}

{{define "home_auth"}}
<p>Hello, {{.Name}}!</p>
<button onclick="window.location.href='/members'">Members Area</button><br>
<button onclick="window.location.href='/logout'">Log Out</button>
{{end}}

{{define "signup"}}
sign up
{{if .Error}}<p>{{.Error}}</p>{{end}}
<form action='/submitUser' method='post'>
<input name='name' type='text' placeholder='name'><br>
<input name='email' type='text' placeholder='email'><br>
<input name='password' type='password' placeholder='password'><br>
<button>Submit</button>
</form>
{{end}}

{{define "signup_error"}}
{{.Error}} <br><br> <a href="/signup">Try again</a>
{{end}}

{{define "login"}}
Log in
<form action='/loggingin' method='post'>
<input name='email' type='text' placeholder='email'><br>
<input name='password' type='password' placeholder='password'><br>
<button>Submit</button>
</form>
{{end}}

{{define "login_error"}}
{{.Error}} <br><br> <a href="/login">Try again</a>
{{end}}

{{define "members"}}
<h1>Hello, {{.Name}}!</h1>
<img src="{{.Image}}" alt="{{.Title}}" style="max-width: 500px; height: auto;">
<br><br>
<a href="/logout">Log Out</a>
{{end}}

{{define "logout"}}
You are logged out.
{{end}}

{{define "catalog_item"}}
{{.Title}}: <img src='{{.Image}}' style='width:250px;'>
{{end}}

{{define "hello_user"}}
<h1>Hello {{.User}}</h1>
{{end}}

{{define "injection_usage"}}
<h3>Nothing to lookup. Try {{.Hint}}</h3>
{{end}}

{{define "injection_detected"}}
<h1 style='color:darkred;'>A NoSQL injection attack was detected!!</h1>
{{end}}

{{define "server_error"}}
Something went wrong. Please try again later.
{{end}}
`

// mustViews parses the inline templates; a parse failure is a programming
// error and panics at startup.
func mustViews() *template.Template {
	return template.Must(template.New("views").Parse(viewsText))
}
