package console

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"dev.hon.one/argon/common"
	"dev.hon.one/argon/util"
)

// Element IDs and markers of the web UI.
const (
	webUsernameInputID   = "txt_Username"
	webPasswordInputID   = "txt_Password"
	webLogoutControlID   = "headerLogoutText"
	webHeaderTabsID      = "headerTab"
	webNavigationID      = "nav"
	webContentFrameID    = "frameContent"
	webStatusPanelID     = "IPv4Panel"
	webRebootButtonID    = "btnReboot"
	webWANNavValue       = 0
	webStatusLabelColumn = 0
	webStatusAddrColumn  = 3
)

const webMaxPageSize = 4 << 20

type webPage struct {
	url  *url.URL
	root *html.Node
	raw  []byte
}

// WebConsole - Session with the device's web administration UI, driven through plain HTTP requests.
// Pages are navigated the way a browser would: links are followed, forms are submitted and
// the content frame is loaded separately from the top-level page.
type WebConsole struct {
	baseURL        *url.URL
	credential     common.Credential
	landingPath    string
	rebootTabIndex int
	client         *http.Client
	state          SessionState
	current        *webPage // Top-level page, never a frame
}

// NewWebConsole - Create a logged out web console for the device.
func NewWebConsole(device common.Device, timeout time.Duration) (*WebConsole, error) {
	baseURL, err := url.Parse(strings.TrimSpace(device.Address))
	if err != nil {
		return nil, fmt.Errorf("malformed device address: %w", err)
	}
	if (baseURL.Scheme != "http" && baseURL.Scheme != "https") || baseURL.Host == "" {
		return nil, fmt.Errorf("device address must be an HTTP(S) URL: %v", device.Address)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/")
	baseURL.RawQuery = ""
	baseURL.Fragment = ""

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	landingPath := device.LandingPath
	if !strings.HasPrefix(landingPath, "/") {
		landingPath = "/" + landingPath
	}

	return &WebConsole{
		baseURL:        baseURL,
		credential:     device.Credential,
		landingPath:    landingPath,
		rebootTabIndex: device.RebootTabIndex,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // Devices use self-signed certificates
			},
		},
	}, nil
}

func (console *WebConsole) loginURL() *url.URL {
	loginURL := *console.baseURL
	loginURL.Path = console.baseURL.Path + "/"
	return &loginURL
}

func (console *WebConsole) landingURL() *url.URL {
	landingURL := *console.baseURL
	landingURL.Path = console.baseURL.Path + console.landingPath
	return &landingURL
}

func sameLocation(actual *url.URL, expected *url.URL) bool {
	return actual.Scheme == expected.Scheme && actual.Host == expected.Host && actual.Path == expected.Path
}

// State - Current authentication state.
func (console *WebConsole) State() SessionState {
	return console.state
}

// Login - Open the login page, submit the credentials and check that the landing page is reached.
func (console *WebConsole) Login(ctx context.Context) error {
	console.state = LoggedOut
	loginPage, err := console.fetch(ctx, http.MethodGet, console.loginURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	console.current = loginPage
	if !sameLocation(loginPage.url, console.loginURL()) {
		return fmt.Errorf("%w: not in login page (current url: %v)", ErrUnexpectedPage, loginPage.url)
	}

	usernameInput := findByID(loginPage.root, webUsernameInputID)
	passwordInput := findByID(loginPage.root, webPasswordInputID)
	if usernameInput == nil || passwordInput == nil {
		return fmt.Errorf("%w: login fields", ErrControlNotFound)
	}
	form := findAncestor(usernameInput, "form")
	if form == nil {
		return fmt.Errorf("%w: login form", ErrControlNotFound)
	}
	values := formValues(form)
	values.Set(fieldName(usernameInput), console.credential.Username)
	values.Set(fieldName(passwordInput), console.credential.Password)

	landingPage, err := console.submit(ctx, loginPage, form, values)
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	console.current = landingPage
	if !sameLocation(landingPage.url, console.landingURL()) {
		return fmt.Errorf("%w: landed on %v", ErrAuthenticationFailed, landingPage.url)
	}

	console.state = LoggedIn
	return nil
}

// Logout - Trigger the logout control of the current page, unless already at the login page.
func (console *WebConsole) Logout(ctx context.Context) error {
	if console.current == nil || sameLocation(console.current.url, console.loginURL()) {
		util.Tagged(util.TagLogout).Info("Already logged out")
		console.state = LoggedOut
		return nil
	}

	control := findByID(console.current.root, webLogoutControlID)
	if control == nil {
		return fmt.Errorf("%w: logout control", ErrControlNotFound)
	}
	resultPage, err := console.follow(ctx, console.current, control)
	if err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	console.current = resultPage
	console.state = LoggedOut
	return nil
}

// ReadStatus - Open the WAN section and look up the address of the labeled interface in the status table.
// A missing table or row is not an error.
func (console *WebConsole) ReadStatus(ctx context.Context, wanLabel string) (string, bool, error) {
	if console.state != LoggedIn || console.current == nil {
		return "", false, ErrNotLoggedIn
	}

	var wanItem *html.Node
	for _, item := range findAllByTag(findByID(console.current.root, webNavigationID), "li") {
		if listItemValue(item) == webWANNavValue {
			wanItem = item
			break
		}
	}
	if wanItem == nil {
		return "", false, fmt.Errorf("%w: WAN navigation item", ErrControlNotFound)
	}
	wanPage, err := console.follow(ctx, console.current, wanItem)
	if err != nil {
		return "", false, fmt.Errorf("failed to open WAN section: %w", err)
	}
	console.current = wanPage

	// The frame is only held locally, the session stays at top-level content
	content, err := console.openFrame(ctx, wanPage)
	if err != nil {
		return "", false, fmt.Errorf("failed to open WAN status: %w", err)
	}

	rows, tableFound := parseStatusTable(content.root)
	if !tableFound {
		log.WithField("url", content.url.String()).Trace("Status table not found")
		return "", false, nil
	}
	address, found := FindAddress(rows, wanLabel)
	return address, found, nil
}

// Ordinal value of a list item as the browser reads it: leading integer of the attribute, 0 if missing or not a number.
func listItemValue(item *html.Node) int {
	raw := strings.TrimLeft(attribute(item, "value"), " \t\n\f\r")
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	value, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0
	}
	return value
}

func parseStatusTable(root *html.Node) ([]StatusRow, bool) {
	panel := findByID(root, webStatusPanelID)
	if panel == nil {
		return nil, false
	}
	var rows []StatusRow
	for _, tableRow := range findAllByTag(panel, "tr") {
		// Header and spacer rows have no ID
		if strings.TrimSpace(attribute(tableRow, "id")) == "" {
			continue
		}
		cells := findAllByTag(tableRow, "td")
		if len(cells) <= webStatusAddrColumn {
			continue
		}
		rows = append(rows, StatusRow{
			Label:   textContent(cells[webStatusLabelColumn]),
			Address: textContent(cells[webStatusAddrColumn]),
		})
	}
	return rows, true
}

// Reboot - Open system tools by header tab position, press reboot and accept the confirmation.
func (console *WebConsole) Reboot(ctx context.Context) error {
	if console.state != LoggedIn || console.current == nil {
		return ErrNotLoggedIn
	}

	// The tools tab has no stable identifier, only its position
	tabItems := findAllByTag(findByID(console.current.root, webHeaderTabsID), "li")
	if console.rebootTabIndex < 0 || console.rebootTabIndex >= len(tabItems) {
		return fmt.Errorf("%w: header tab %v (found %v tabs)", ErrControlNotFound, console.rebootTabIndex, len(tabItems))
	}
	toolsPage, err := console.follow(ctx, console.current, tabItems[console.rebootTabIndex])
	if err != nil {
		return fmt.Errorf("failed to open system tools: %w", err)
	}
	console.current = toolsPage

	content, err := console.openFrame(ctx, toolsPage)
	if err != nil {
		return fmt.Errorf("failed to open system tools content: %w", err)
	}
	button := findByID(content.root, webRebootButtonID)
	if button == nil {
		return fmt.Errorf("%w: reboot button", ErrControlNotFound)
	}
	if !hasConfirmation(button) {
		return fmt.Errorf("%w: reboot confirmation", ErrControlNotFound)
	}
	form := findAncestor(button, "form")
	if form == nil {
		return fmt.Errorf("%w: reboot form", ErrControlNotFound)
	}
	values := formValues(form)
	if name := attribute(button, "name"); name != "" {
		values.Set(name, attribute(button, "value"))
	}

	// Accepting the confirmation restarts the device, the session is gone from here on
	console.state = LoggedOut
	console.current = nil
	if _, err := console.submit(ctx, content, form, values); err != nil {
		return fmt.Errorf("failed to confirm reboot: %w", err)
	}
	return nil
}

func hasConfirmation(button *html.Node) bool {
	return hasAttribute(button, "data-confirm") || strings.Contains(attribute(button, "onclick"), "confirm(")
}

// Screenshot - Save the source of the current top-level page.
func (console *WebConsole) Screenshot(path string) error {
	if console.current == nil {
		return errors.New("no page loaded")
	}
	return ioutil.WriteFile(path, console.current.raw, 0644)
}

// Close - Drop idle connections.
func (console *WebConsole) Close() error {
	console.client.CloseIdleConnections()
	console.state = LoggedOut
	console.current = nil
	return nil
}

func (console *WebConsole) follow(ctx context.Context, from *webPage, element *html.Node) (*webPage, error) {
	target := linkTarget(element)
	if target == "" {
		return nil, fmt.Errorf("%w: no link target", ErrControlNotFound)
	}
	targetURL, err := from.url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("malformed link target %q: %w", target, err)
	}
	return console.fetch(ctx, http.MethodGet, targetURL, nil)
}

func (console *WebConsole) openFrame(ctx context.Context, top *webPage) (*webPage, error) {
	frame := findByID(top.root, webContentFrameID)
	source := strings.TrimSpace(attribute(frame, "src"))
	if frame == nil || source == "" {
		return nil, fmt.Errorf("%w: content frame", ErrControlNotFound)
	}
	frameURL, err := top.url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("malformed frame source %q: %w", source, err)
	}
	return console.fetch(ctx, http.MethodGet, frameURL, nil)
}

func (console *WebConsole) submit(ctx context.Context, from *webPage, form *html.Node, values url.Values) (*webPage, error) {
	actionURL, err := from.url.Parse(strings.TrimSpace(attribute(form, "action")))
	if err != nil {
		return nil, fmt.Errorf("malformed form action: %w", err)
	}
	if strings.EqualFold(attribute(form, "method"), http.MethodPost) {
		return console.fetch(ctx, http.MethodPost, actionURL, values)
	}
	actionURL.RawQuery = values.Encode()
	return console.fetch(ctx, http.MethodGet, actionURL, nil)
}

func (console *WebConsole) fetch(ctx context.Context, method string, target *url.URL, form url.Values) (*webPage, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	request, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	log.WithFields(log.Fields{
		"method": method,
		"url":    target.String(),
	}).Trace("Device request")
	response, err := console.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected HTTP status %v from %v", response.StatusCode, response.Request.URL)
	}

	raw, err := ioutil.ReadAll(io.LimitReader(response.Body, webMaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &webPage{url: response.Request.URL, root: root, raw: raw}, nil
}
