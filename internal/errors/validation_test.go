package errors_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

type ValidationTestSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationTestSuite))
}

func (s *ValidationTestSuite) TestBuilderCollectsFields() {
	vb := errors.NewValidationBuilder()
	vb.RequiredField("session_id").
		Fieldf("limit", "must be at most %d", 200)

	err := vb.Build()
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
	s.Equal("validation failed: limit: must be at most 200; session_id: is required", errors.GetMessage(err))
	s.NotNil(errors.GetMeta(err)["validation_errors"])
}

func (s *ValidationTestSuite) TestBuilderNoErrors() {
	s.NoError(errors.NewValidationBuilder().Build())
}

func (s *ValidationTestSuite) TestHelpers() {
	testCases := []struct {
		name      string
		apply     func(vb *errors.ValidationBuilder)
		shouldErr bool
	}{
		{"required present", func(vb *errors.ValidationBuilder) { errors.ValidateRequired("f", "x", vb) }, false},
		{"required blank", func(vb *errors.ValidationBuilder) { errors.ValidateRequired("f", "   ", vb) }, true},
		{"max length ok", func(vb *errors.ValidationBuilder) { errors.ValidateMaxLength("f", "abc", 3, vb) }, false},
		{"max length exceeded", func(vb *errors.ValidationBuilder) { errors.ValidateMaxLength("f", "abcd", 3, vb) }, true},
		{"range ok", func(vb *errors.ValidationBuilder) { errors.ValidateRange("f", 20, 2, 20, vb) }, false},
		{"range low", func(vb *errors.ValidationBuilder) { errors.ValidateRange("f", 1, 2, 20, vb) }, true},
		{"enum ok", func(vb *errors.ValidationBuilder) { errors.ValidateEnum("f", "redis", []string{"redis", "sqlite"}, vb) }, false},
		{"enum bad", func(vb *errors.ValidationBuilder) { errors.ValidateEnum("f", "etcd", []string{"redis", "sqlite"}, vb) }, true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			vb := errors.NewValidationBuilder()
			tc.apply(vb)
			if tc.shouldErr {
				s.Error(vb.Build())
			} else {
				s.NoError(vb.Build())
			}
		})
	}
}
