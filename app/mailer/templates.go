package mailer

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type inviteCodeData struct {
	SiteName       string
	InviteCode     string
	MembershipName string
	Year           int
}

type testEmailData struct {
	Provider  string
	FromName  string
	FromEmail string
	SMTPHost  string
	SMTPPort  int
}

var inviteCodeHTML = htmltemplate.Must(htmltemplate.New("invite_code_html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { text-align: center; padding: 20px 0; border-bottom: 2px solid #4F46E5; }
    .header h1 { color: #4F46E5; margin: 0; }
    .content { padding: 30px 0; }
    .code-box { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); border-radius: 12px; padding: 30px; text-align: center; margin: 20px 0; }
    .code { font-size: 32px; font-weight: bold; color: #fff; letter-spacing: 4px; font-family: monospace; }
    .membership { background: #F3F4F6; border-radius: 8px; padding: 15px; margin: 20px 0; }
    .membership-type { color: #4F46E5; font-weight: bold; }
    .footer { text-align: center; padding-top: 20px; border-top: 1px solid #E5E7EB; color: #6B7280; font-size: 14px; }
    .warning { background: #FEF3C7; border: 1px solid #F59E0B; border-radius: 8px; padding: 15px; margin: 20px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>{{.SiteName}}</h1></div>
    <div class="content">
      <p>您好！</p>
      <p>感谢您的购买！以下是您的邀请码：</p>
      <div class="code-box"><div class="code">{{.InviteCode}}</div></div>
      <div class="membership">
        <p><strong>会员类型：</strong><span class="membership-type">{{.MembershipName}}</span></p>
      </div>
      <div class="warning">
        <p><strong>重要提示：</strong></p>
        <ul style="margin: 10px 0; padding-left: 20px;">
          <li>每个邀请码只能使用一次</li>
          <li>请妥善保管，不要泄露给他人</li>
          <li>如有问题，请联系客服</li>
        </ul>
      </div>
      <p>使用方法：</p>
      <ol>
        <li>访问网站注册页面</li>
        <li>填写用户名和密码</li>
        <li>输入上方邀请码</li>
        <li>完成注册，享受会员权益</li>
      </ol>
    </div>
    <div class="footer">
      <p>此邮件由系统自动发送，请勿直接回复</p>
      <p>&copy; {{.Year}} {{.SiteName}}</p>
    </div>
  </div>
</body>
</html>
`))

var inviteCodeText = texttemplate.Must(texttemplate.New("invite_code_text").Parse(`【{{.SiteName}}】您的邀请码

感谢您的购买！以下是您的邀请码：

{{.InviteCode}}

会员类型：{{.MembershipName}}

重要提示：
- 每个邀请码只能使用一次
- 请妥善保管，不要泄露给他人
- 如有问题，请联系客服

使用方法：
1. 访问网站注册页面
2. 填写用户名和密码
3. 输入上方邀请码
4. 完成注册，享受会员权益

此邮件由系统自动发送，请勿直接回复
`))

var testEmailHTML = htmltemplate.Must(htmltemplate.New("test_email_html").Parse(`<div style="font-family: sans-serif; padding: 20px;">
  <h2>邮件配置测试</h2>
  <p>如果您收到此邮件，说明邮件配置正确！</p>
  <p>配置详情：</p>
  <ul>
    <li>提供商：{{.Provider}}</li>
    <li>发件人：{{.FromName}} &lt;{{.FromEmail}}&gt;</li>
    {{if .SMTPHost}}<li>SMTP服务器：{{.SMTPHost}}:{{.SMTPPort}}</li>{{end}}
  </ul>
</div>
`))

var testEmailText = texttemplate.Must(texttemplate.New("test_email_text").Parse(`邮件配置测试

如果您收到此邮件，说明邮件配置正确！

提供商：{{.Provider}}
发件人：{{.FromName}} <{{.FromEmail}}>
`))

// InviteCodeMessage renders the email that delivers a purchased invite code.
func InviteCodeMessage(to, siteName, inviteCode, membershipName string, year int) (*Message, error) {
	data := inviteCodeData{
		SiteName:       siteName,
		InviteCode:     inviteCode,
		MembershipName: membershipName,
		Year:           year,
	}

	var html, text bytes.Buffer
	if err := inviteCodeHTML.Execute(&html, data); err != nil {
		return nil, err
	}
	if err := inviteCodeText.Execute(&text, data); err != nil {
		return nil, err
	}

	return &Message{
		To:      to,
		Subject: "【" + siteName + "】您的邀请码",
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// TestMessage renders the email sent when an operator checks the mail settings.
func TestMessage(to, provider, fromName, fromEmail, smtpHost string, smtpPort int) (*Message, error) {
	label := "Resend"
	if provider == "smtp" {
		label = "SMTP"
	} else {
		smtpHost = ""
	}
	data := testEmailData{
		Provider:  label,
		FromName:  fromName,
		FromEmail: fromEmail,
		SMTPHost:  smtpHost,
		SMTPPort:  smtpPort,
	}

	var html, text bytes.Buffer
	if err := testEmailHTML.Execute(&html, data); err != nil {
		return nil, err
	}
	if err := testEmailText.Execute(&text, data); err != nil {
		return nil, err
	}

	return &Message{
		To:      to,
		Subject: "邮件配置测试",
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
