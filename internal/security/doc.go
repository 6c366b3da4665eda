// Package security keeps decrypted message files inside the working
// directory. Paths are validated lexically and every file operation goes
// through os.Root, so symlinks cannot redirect a write outside it.
package security
