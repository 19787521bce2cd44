// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a capturing slog handler with assertion
// helpers and the sample master table used by the pipeline tests:
//
//	logger, handler := testutil.NewTestLogger(t)
//	// run code that logs through logger
//	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Imputed categorical height")
package shared
