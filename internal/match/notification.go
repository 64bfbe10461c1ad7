package match

import (
	"bytes"
	"html/template"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// Subject is the subject line of every match notification.
const Subject = "Match Found for Your Lost Item"

var bodyTemplate = template.Must(template.New("match").Parse(`<h1>Match Found!</h1>
<p>Your lost item ("{{.Lost.ItemName}}") has been matched with a found item.</p>
<p>Location: {{.Lost.Location}} and {{.Found.Location}}</p>
<p>Date Matched: {{.MatchedAt.Format "2006-01-02"}}</p>
<p>Please bring your ID to the lost and found office and quote {{.Lost.ID}}.</p>
<p>Thank you for using our service!</p>
`))

// NotificationBody renders the HTML message sent to the owner of m's lost
// report.
func NotificationBody(m *model.Match) (string, error) {
	data := struct {
		Lost      model.LostReport
		Found     model.FoundRecord
		MatchedAt time.Time
	}{m.Lost, m.Found, m.MatchedAt}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
