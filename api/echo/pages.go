package echoapi

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	relay "github.com/blanxlait/kroger-relay"
)

// The callback endpoint is the only browser-facing surface; these two pages
// are all the UI the relay has.

var errorTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html><head><title>{{.Title}}</title>
<meta name="viewport" content="width=device-width,initial-scale=1">
</head>
<body style="font-family:system-ui,sans-serif;display:flex;justify-content:center;align-items:center;min-height:100vh;margin:0;background:#f5f5f5">
  <div style="text-align:center;background:white;padding:2rem 3rem;border-radius:12px;box-shadow:0 2px 8px rgba(0,0,0,0.1);max-width:480px">
    <h1 style="color:#dc2626">{{.Title}}</h1>
    <p style="color:#666">{{.Message}}</p>
  </div>
</body></html>`))

var successTmpl = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html><head><title>Login Successful - krocli</title>
<meta name="viewport" content="width=device-width,initial-scale=1">
</head>
<body style="font-family:system-ui,-apple-system,sans-serif;display:flex;justify-content:center;align-items:center;min-height:100vh;margin:0;background:linear-gradient(135deg,#f5f7fa 0%,#c3cfe2 100%)">
  <div style="background:white;padding:2.5rem;border-radius:16px;box-shadow:0 4px 24px rgba(0,0,0,0.1);max-width:520px;width:90%">
    <div style="text-align:center;margin-bottom:1.5rem">
      <div style="font-size:3rem;margin-bottom:0.5rem">&#10003;</div>
      <h1 style="margin:0 0 0.25rem;font-size:1.5rem;color:#111">Login Successful</h1>
      <p style="margin:0;color:#666;font-size:0.95rem">{{.Subtitle}}</p>
    </div>

    <div style="background:#f0fdf4;border:1px solid #bbf7d0;border-radius:10px;padding:1rem 1.25rem;margin-bottom:1.5rem">
      <h2 style="margin:0 0 0.5rem;font-size:0.9rem;color:#15803d;font-weight:600">Your data is secure</h2>
      <ul style="margin:0;padding:0 0 0 1.1rem;font-size:0.85rem;color:#333;line-height:1.7">
        <li>Session deleted from server after token delivery</li>
        <li>No credentials or passwords stored on the relay</li>
        <li>Login sessions expire after 5 minutes</li>
        <li>Relay is <a href="https://github.com/BLANXLAIT/kroger-relay" style="color:#15803d">fully open source</a></li>
      </ul>
    </div>

    <div style="margin-bottom:1.5rem">
      <h2 style="margin:0 0 0.75rem;font-size:0.9rem;color:#333;font-weight:600">Try it out</h2>
{{if .ShowCLI}}
      <div style="text-align:left;background:#1e1e1e;color:#d4d4d4;padding:1rem 1.25rem;border-radius:8px;font-family:'SF Mono',Monaco,Consolas,monospace;font-size:0.85rem;line-height:1.6;overflow-x:auto">
        <div><span style="color:#6a9955">$</span> krocli products search --term &quot;milk&quot;</div>
        <div><span style="color:#6a9955">$</span> krocli cart add --upc 0011110838049 --qty 2</div>
        <div><span style="color:#6a9955">$</span> krocli identity profile</div>
      </div>
{{end}}
{{if .ShowBoth}}
      <p style="margin:0.75rem 0 0.5rem;font-size:0.85rem;color:#888">Or ask your AI agent:</p>
{{end}}
{{if .ShowAgent}}
      <div style="text-align:left;background:#f0f4ff;padding:1rem 1.25rem;border-radius:8px;font-size:0.9rem;line-height:1.8;color:#333">
        <div>&ldquo;Search for organic milk at Ralphs&rdquo;</div>
        <div>&ldquo;Add eggs and bread to my Kroger cart&rdquo;</div>
        <div>&ldquo;Show my Kroger profile&rdquo;</div>
      </div>
{{end}}
    </div>

    <div style="text-align:center;padding-top:0.5rem;border-top:1px solid #eee">
      <a href="https://github.com/BLANXLAIT/krocli" style="color:#888;font-size:0.8rem;text-decoration:none">github.com/BLANXLAIT/krocli</a>
    </div>
  </div>
</body></html>`))

type errorPageData struct {
	Title   string
	Message string
}

type successPageData struct {
	Subtitle  string
	ShowCLI   bool
	ShowAgent bool
	ShowBoth  bool
}

// successDataFor dispatches the closed source variant onto page content.
func successDataFor(source relay.Source) successPageData {
	switch source {
	case relay.SourceCLI:
		return successPageData{
			Subtitle: "Return to your terminal — you're all set.",
			ShowCLI:  true,
		}
	case relay.SourceAgent:
		return successPageData{
			Subtitle:  "Go back to your conversation — you're all set.",
			ShowAgent: true,
		}
	default:
		return successPageData{
			Subtitle:  "You can close this tab now.",
			ShowCLI:   true,
			ShowAgent: true,
			ShowBoth:  true,
		}
	}
}

func renderErrorPage(c echo.Context, status int, title, message string) error {
	var buf bytes.Buffer
	if err := errorTmpl.Execute(&buf, errorPageData{Title: title, Message: message}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "page rendering failed")
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func renderSuccessPage(c echo.Context, source relay.Source) error {
	var buf bytes.Buffer
	if err := successTmpl.Execute(&buf, successDataFor(source)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "page rendering failed")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
