// Package git warns when a decrypted message is written where git could
// pick it up.
//
// Checks performed:
//   - Whether the output file is tracked by git (should not be)
//   - Whether the output file is ignored by git (should be)
package git
