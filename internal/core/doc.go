// Package core provides the darkcrypt operations behind the CLI.
//
// Core operations include:
//   - Seal: encrypt a message, optionally journal it, build a share link
//     and copy it to the clipboard
//   - Open: decrypt a payload, share link, fragment or journal ID
//   - WriteOutput/Diff: put a decrypted message on disk or compare it with a local file
//   - History/Show/Forget/Compact: manage the payload journal
//
// Conflicts on an existing output file support multiple strategies:
//   - Keep local version
//   - Use payload (overwrite)
//   - Edit merged (opens $EDITOR with git-style conflict markers)
//   - Keep both (saves the message as .from-payload)
package core
