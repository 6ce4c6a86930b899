// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"codeberg.org/oliverandrich/go-shop-backend/internal/i18n"
	"codeberg.org/oliverandrich/go-shop-backend/internal/templates"
)

func TestOTPEmail(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)

	html, err := templates.RenderString(ctx, templates.OTPEmail("Sara", "042137", 10))

	require.NoError(t, err)
	assert.Contains(t, html, `lang="en" dir="ltr"`)
	assert.Contains(t, html, "Hello Sara,")
	assert.Contains(t, html, "042137")
	assert.Contains(t, html, "This code expires in 10 minutes.")
}

func TestOTPEmail_EscapesName(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)

	html, err := templates.RenderString(ctx, templates.OTPEmail("<b>Eve</b>", "123456", 10))

	require.NoError(t, err)
	assert.NotContains(t, html, "<b>Eve</b>")
	assert.Contains(t, html, "&lt;b&gt;Eve&lt;/b&gt;")
}

func TestOTPEmail_Arabic(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.Arabic)

	html, err := templates.RenderString(ctx, templates.OTPEmail("Sara", "123456", 10))

	require.NoError(t, err)
	assert.Contains(t, html, `lang="ar" dir="rtl"`)
	assert.NotContains(t, html, "Hello Sara")
}
