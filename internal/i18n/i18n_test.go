// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"codeberg.org/oliverandrich/go-shop-backend/internal/i18n"
)

func TestInit(t *testing.T) {
	err := i18n.Init()
	require.NoError(t, err)
}

func TestT(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "Verify your email - Shop App", i18n.T(ctx, "email_otp_subject"))
}

func TestT_Arabic(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.Arabic)

	result := i18n.T(ctx, "email_otp_subject")
	assert.NotEqual(t, "email_otp_subject", result)
	assert.NotEqual(t, "Verify your email - Shop App", result)
}

func TestT_UnknownKey(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	require.NoError(t, i18n.Init())

	assert.Equal(t, "Shop App", i18n.T(context.Background(), "app_name"))
}

func TestTData(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "Hello Sara,", i18n.TData(ctx, "email_otp_greeting", map[string]any{"Name": "Sara"}))
	assert.Equal(t, "This code expires in 10 minutes.", i18n.TData(ctx, "email_otp_expiry", map[string]any{"Minutes": 10}))
}

func TestTPlural(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.NotEmpty(t, i18n.TPlural(ctx, "app_name", 1))
	assert.NotEmpty(t, i18n.TPlural(ctx, "app_name", 5))
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		expected       language.Tag
		acceptLanguage string
	}{
		{language.English, "en"},
		{language.English, "en-US"},
		{language.Arabic, "ar"},
		{language.Arabic, "ar-EG"},
		{language.English, "fr"},
		{language.English, ""},
		{language.Arabic, "ar, en;q=0.9"},
		{language.English, "en, ar;q=0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			assert.Equal(t, tt.expected, i18n.MatchLanguage(tt.acceptLanguage))
		})
	}
}

func TestMatchLanguage_FirstPreferenceWins(t *testing.T) {
	assert.Equal(t, language.Arabic, i18n.MatchLanguage("ar", "en"))
}

func TestWithLocale(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.Arabic)

	assert.Equal(t, "ar", i18n.GetLocale(ctx))
}

func TestGetLocale_Default(t *testing.T) {
	assert.Equal(t, "en", i18n.GetLocale(context.Background()))
}
