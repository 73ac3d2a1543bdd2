package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() AssistantForm {
	return AssistantForm{
		Name:           "Bot X",
		Language:       LanguageEnglish,
		Tone:           ToneFormal,
		ResponseLength: ResponseLength{Short: 40, Medium: 40, Long: 20},
	}
}

func TestValidateAcceptsValidForm(t *testing.T) {
	require.NoError(t, validForm().Validate())
	assert.True(t, validForm().Valid())
}

func TestValidateRejectsShortName(t *testing.T) {
	f := validForm()
	f.Name = "ab"

	err := f.Validate()
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.NotContains(t, ve.Fields, "responseLength")
}

func TestValidateRejectsSumOtherThanHundred(t *testing.T) {
	cases := []ResponseLength{
		{Short: 33, Medium: 33, Long: 33},
		{Short: 50, Medium: 50, Long: 1},
		{Short: 0, Medium: 0, Long: 0},
	}
	for _, rl := range cases {
		f := validForm()
		f.ResponseLength = rl

		err := f.Validate()
		require.Error(t, err, "sum %d", rl.Total())
		assert.True(t, IsValidationError(err))

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "responseLength")
	}
}

func TestValidateRejectsOutOfRangePercentage(t *testing.T) {
	f := validForm()
	f.ResponseLength = ResponseLength{Short: 120, Medium: -10, Long: -10}

	var ve *ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
	assert.Contains(t, ve.Fields, "responseLength.short")
	assert.Contains(t, ve.Fields, "responseLength.medium")
	// The sum is exactly 100, so only the range checks fire.
	assert.NotContains(t, ve.Fields, "responseLength")
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	f := validForm()
	f.Language = "Klingon"
	f.Tone = "Sarcastic"

	var ve *ValidationError
	require.ErrorAs(t, f.Validate(), &ve)
	assert.Contains(t, ve.Fields, "language")
	assert.Contains(t, ve.Fields, "tone")
}

func TestValidateStep(t *testing.T) {
	f := validForm()
	f.ResponseLength = ResponseLength{Short: 10}

	require.NoError(t, f.ValidateStep(StepIdentity))
	require.Error(t, f.ValidateStep(StepMixture))

	f = validForm()
	f.Name = ""
	require.Error(t, f.ValidateStep(StepIdentity))
	require.NoError(t, f.ValidateStep(StepMixture))

	err := f.ValidateStep(3)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestDefaultFormNeedsOnlyAName(t *testing.T) {
	f := DefaultForm()
	assert.Equal(t, 100, f.ResponseLength.Total())
	require.Error(t, f.Validate())

	f.Name = "Helper"
	require.NoError(t, f.Validate())
}

func TestPatchApplyToKeepsUnsetFields(t *testing.T) {
	base := SeedAssistants()[1]
	name := "New Name"

	merged := AssistantPatch{ID: "ignored", Name: &name}.ApplyTo(base)

	assert.Equal(t, base.ID, merged.ID)
	assert.Equal(t, "New Name", merged.Name)
	assert.Equal(t, base.Language, merged.Language)
	assert.Equal(t, base.Tone, merged.Tone)
	assert.Equal(t, base.ResponseLength, merged.ResponseLength)
	assert.Equal(t, base.Rules, merged.Rules)
}

func TestFormPatchRoundTrip(t *testing.T) {
	base := SeedAssistants()[0]
	f := validForm()

	merged := f.Patch().ApplyTo(base)

	assert.Equal(t, f, merged.Form())
	assert.Equal(t, base.Rules, merged.Rules)
}

func TestSeedAssistantsAreValid(t *testing.T) {
	for _, a := range SeedAssistants() {
		require.NoError(t, a.Form().Validate(), a.Name)
	}
}

func TestTheme(t *testing.T) {
	assert.Equal(t, ThemeLight, ParseTheme(""))
	assert.Equal(t, ThemeLight, ParseTheme("purple"))
	assert.Equal(t, ThemeDark, ParseTheme("dark"))
	assert.Equal(t, ThemeLight, ThemeLight.Toggle().Toggle())
}
