package deliver

// wellKnownService is where a named mail provider accepts submissions.
type wellKnownService struct {
	Host        string
	Port        uint16
	ImplicitTLS bool
}

var wellKnownServices = map[string]wellKnownService{
	"gmail":     {Host: "smtp.gmail.com", Port: 465, ImplicitTLS: true},
	"outlook":   {Host: "smtp-mail.outlook.com", Port: 587},
	"hotmail":   {Host: "smtp-mail.outlook.com", Port: 587},
	"office365": {Host: "smtp.office365.com", Port: 587},
	"yahoo":     {Host: "smtp.mail.yahoo.com", Port: 465, ImplicitTLS: true},
	"icloud":    {Host: "smtp.mail.me.com", Port: 587},
	"zoho":      {Host: "smtp.zoho.com", Port: 465, ImplicitTLS: true},
	"fastmail":  {Host: "smtp.fastmail.com", Port: 465, ImplicitTLS: true},
	"sendgrid":  {Host: "smtp.sendgrid.net", Port: 587},
	"mailgun":   {Host: "smtp.mailgun.org", Port: 465, ImplicitTLS: true},
}
