package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

const (
	TemplateOTP                   = "otp"
	TemplateRegistrationConfirmed = "registration_confirmed"
)

type OTPVars struct {
	AppName  string
	Username string
	Code     string
	Minutes  int
}

type ConfirmationVars struct {
	AppName    string
	Username   string
	CourseName string
	CourseCode string
}

// Templates guarda el par html/txt de cada correo.
type Templates struct {
	html map[string]*htmltpl.Template
	text map[string]*texttpl.Template
}

// LoadTemplates parsea los templates embebidos.
func LoadTemplates() (*Templates, error) {
	t := &Templates{
		html: map[string]*htmltpl.Template{},
		text: map[string]*texttpl.Template{},
	}
	for _, name := range []string{TemplateOTP, TemplateRegistrationConfirmed} {
		h, err := htmltpl.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("email: template %s.html: %w", name, err)
		}
		x, err := texttpl.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("email: template %s.txt: %w", name, err)
		}
		t.html[name] = h
		t.text[name] = x
	}
	return t, nil
}

// Render ejecuta ambos templates con vars.
func (t *Templates) Render(name string, vars any) (html, text string, err error) {
	h, ok := t.html[name]
	x, ok2 := t.text[name]
	if !ok || !ok2 {
		return "", "", fmt.Errorf("email: template %q desconocido", name)
	}
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, vars); err != nil {
		return "", "", fmt.Errorf("email: render %s html: %w", name, err)
	}
	if err := x.Execute(&tb, vars); err != nil {
		return "", "", fmt.Errorf("email: render %s txt: %w", name, err)
	}
	return hb.String(), tb.String(), nil
}
