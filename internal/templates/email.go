// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// OTPEmail is the HTML body of the email verification message.
func OTPEmail(name, code string, minutes int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="`)
		b.WriteString(templ.EscapeString(Locale(ctx)))
		b.WriteString(`" dir="`)
		b.WriteString(Dir(ctx))
		b.WriteString(`"><head><meta charset="utf-8"><title>`)
		b.WriteString(templ.EscapeString(T(ctx, "email_otp_subject")))
		b.WriteString(`</title></head><body style="font-family:sans-serif;color:#222">`)

		b.WriteString(`<p>`)
		b.WriteString(templ.EscapeString(TData(ctx, "email_otp_greeting", map[string]any{"Name": name})))
		b.WriteString(`</p><p>`)
		b.WriteString(templ.EscapeString(T(ctx, "email_otp_intro")))
		b.WriteString(`</p><p style="font-size:28px;font-weight:bold;letter-spacing:6px">`)
		b.WriteString(templ.EscapeString(code))
		b.WriteString(`</p><p>`)
		b.WriteString(templ.EscapeString(TData(ctx, "email_otp_expiry", map[string]any{"Minutes": minutes})))
		b.WriteString(`</p><p>`)
		b.WriteString(templ.EscapeString(T(ctx, "email_otp_ignore")))
		b.WriteString(`</p><p>`)
		b.WriteString(templ.EscapeString(T(ctx, "email_otp_signature")))
		b.WriteString(`</p></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// RenderString renders component to a string.
func RenderString(ctx context.Context, component templ.Component) (string, error) {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(ctx, buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
