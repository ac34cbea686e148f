package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const maxPortalPage = 2 << 20

// PortalVerifier logs in to the school portal with the user's credentials and
// reads the profile table from the student page.
type PortalVerifier struct {
	baseURL *url.URL
	timeout time.Duration
	log     *zap.Logger
}

// NewPortalVerifier creates a PortalVerifier for the portal at baseURL
func NewPortalVerifier(baseURL string, timeout time.Duration, log *zap.Logger) (*PortalVerifier, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid portal URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PortalVerifier{baseURL: u, timeout: timeout, log: log.Named("portal")}, nil
}

// Verify implements Verifier
func (p *PortalVerifier) Verify(ctx context.Context, username, password string) (*Profile, error) {
	if username == "" || password == "" {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar}

	studentURL := p.baseURL.JoinPath("student", username)

	page, pageURL, err := p.fetch(ctx, client, http.MethodGet, studentURL.String(), nil)
	if err != nil {
		return nil, err
	}

	// A fresh jar holds no session, so a profile is only trusted after the
	// credentials were posted.
	form := findLoginForm(page)
	if form == nil {
		p.log.Warn("portal page has no login form", zap.String("url", pageURL.String()))
		return nil, ErrUnavailable
	}

	values := form.values(username, password)
	action := pageURL
	if form.action != "" {
		if action, err = pageURL.Parse(form.action); err != nil {
			return nil, fmt.Errorf("%w: bad form action: %v", ErrUnavailable, err)
		}
	}

	page, pageURL, err = p.fetch(ctx, client, http.MethodPost, action.String(), values)
	if err != nil {
		return nil, err
	}
	if profile := readProfile(page, pageURL); profile != nil {
		return profile, nil
	}

	// Some portal versions land on the home page after login
	page, pageURL, err = p.fetch(ctx, client, http.MethodGet, studentURL.String(), nil)
	if err != nil {
		return nil, err
	}
	if profile := readProfile(page, pageURL); profile != nil {
		return profile, nil
	}

	return nil, ErrNotFound
}

func (p *PortalVerifier) fetch(ctx context.Context, client *http.Client, method, target string, form url.Values) (*html.Node, *url.URL, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, nil, fmt.Errorf("%w: portal returned %d", ErrUnavailable, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPortalPage))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return doc, resp.Request.URL, nil
}

type loginForm struct {
	action    string
	userField string
	passField string
	hidden    url.Values
}

func (f *loginForm) values(username, password string) url.Values {
	values := url.Values{}
	for k, v := range f.hidden {
		values[k] = v
	}
	values.Set(f.userField, username)
	values.Set(f.passField, password)
	return values
}

// findLoginForm locates the form holding the #user and #pass inputs
func findLoginForm(doc *html.Node) *loginForm {
	for _, form := range findAll(doc, func(n *html.Node) bool { return isElement(n, "form") }) {
		f := &loginForm{action: attr(form, "action"), hidden: url.Values{}}
		for _, input := range findAll(form, func(n *html.Node) bool { return isElement(n, "input") }) {
			name := attr(input, "name")
			switch {
			case attr(input, "id") == "user":
				f.userField = fallback(name, "user")
			case attr(input, "id") == "pass":
				f.passField = fallback(name, "pass")
			case strings.EqualFold(attr(input, "type"), "hidden") && name != "":
				f.hidden.Add(name, attr(input, "value"))
			}
		}
		if f.userField != "" && f.passField != "" {
			return f
		}
	}
	return nil
}

// readProfile extracts the profile from table.userprofile; nil when absent
func readProfile(doc *html.Node, pageURL *url.URL) *Profile {
	tables := findAll(doc, func(n *html.Node) bool { return isElement(n, "table") && hasClass(n, "userprofile") })
	if len(tables) == 0 {
		return nil
	}

	var data []string
	for _, row := range findAll(tables[0], func(n *html.Node) bool { return isElement(n, "tr") }) {
		if value := rowValue(row); value != "" {
			data = append(data, value)
		}
	}

	field := func(i int) string {
		if i < len(data) {
			return data[i]
		}
		return ""
	}

	profile := &Profile{
		Name:        field(0),
		Username:    field(1),
		Age:         field(2),
		Born:        field(3),
		Phone:       field(4),
		Address:     field(5),
		Class:       strings.TrimSpace(strings.Split(field(6), ",")[0]),
		StudentID:   field(7),
		Email:       field(8),
		SchoolEmail: field(9),
	}

	photos := findAll(doc, func(n *html.Node) bool { return isElement(n, "div") && hasClass(n, "profilephoto") })
	if len(photos) > 0 {
		imgs := findAll(photos[0], func(n *html.Node) bool { return isElement(n, "img") })
		if len(imgs) > 0 {
			if src, err := pageURL.Parse(attr(imgs[0], "src")); err == nil {
				profile.ImageURL = src.String()
			}
		}
	}

	return profile
}

// rowValue prefers the text of a .value element in a cell, then a link in a cell
func rowValue(row *html.Node) string {
	cells := findAll(row, func(n *html.Node) bool { return isElement(n, "td") })
	for _, cell := range cells {
		for _, v := range findAll(cell, func(n *html.Node) bool { return n.Type == html.ElementNode && hasClass(n, "value") }) {
			if text := strings.TrimSpace(textContent(v)); text != "" {
				return text
			}
		}
	}
	for _, cell := range cells {
		for _, a := range findAll(cell, func(n *html.Node) bool { return isElement(n, "a") }) {
			if text := strings.TrimSpace(textContent(a)); text != "" {
				return text
			}
		}
	}
	return ""
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
