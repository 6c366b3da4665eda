package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/darkcrypt/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encrypt", "enc":
		runEncrypt(ctx, os.Args[2:])
	case "decrypt", "dec":
		runDecrypt(ctx, os.Args[2:])
	case "link":
		runLink(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "history", "ls":
		runHistory(ctx, os.Args[2:])
	case "show":
		runShow(ctx, os.Args[2:])
	case "forget", "rm":
		runForget(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// passFlags registers the passphrase source flags shared by several commands
func passFlags(fs *flag.FlagSet) *cmd.PassOptions {
	opts := &cmd.PassOptions{}
	fs.StringVar(&opts.Keyring, "keyring", "", "Read the passphrase from this OS keyring entry")
	fs.StringVar(&opts.PassEnv, "pass-env", "", "Read the passphrase from this environment variable")
	return opts
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runEncrypt(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	inFile := fs.String("in", "", "Read the message from a file")
	copyOut := fs.Bool("copy", false, "Copy the result to the clipboard")
	link := fs.Bool("link", false, "Print a share link instead of the bare payload")
	save := fs.Bool("save", false, "Save the payload to the journal")
	label := fs.String("label", "", "Journal label")
	verbose := fs.Bool("v", false, "Verbose logging")
	pass := passFlags(fs)
	parse(fs, args)

	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: quote the message to pass it as one argument")
		os.Exit(1)
	}

	cmd.Encrypt(ctx, cmd.EncryptOptions{
		Text:    fs.Arg(0),
		InFile:  *inFile,
		Copy:    *copyOut,
		Link:    *link,
		Save:    *save,
		Label:   *label,
		Pass:    *pass,
		Verbose: *verbose,
	})
}

func runDecrypt(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	out := fs.String("out", "", "Write the message to a file")
	force := fs.Bool("force", false, "Overwrite an existing file without asking")
	keepLocal := fs.Bool("keep-local", false, "Keep an existing file")
	keepBoth := fs.Bool("keep-both", false, "Save the message next to an existing file")
	save := fs.Bool("save", false, "Save the payload to the journal")
	label := fs.String("label", "", "Journal label")
	verbose := fs.Bool("v", false, "Verbose logging")
	pass := passFlags(fs)
	parse(fs, args)

	cmd.Decrypt(ctx, cmd.DecryptOptions{
		Input:     fs.Arg(0),
		Out:       *out,
		Force:     *force,
		KeepLocal: *keepLocal,
		KeepBoth:  *keepBoth,
		Save:      *save,
		Label:     *label,
		Pass:      *pass,
		Verbose:   *verbose,
	})
}

func runLink(_ context.Context, args []string) {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	parse(fs, args)

	cmd.Link(fs.Arg(0), *verbose)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	pass := passFlags(fs)
	parse(fs, args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: darkcrypt diff <payload|link|id> <file>")
		os.Exit(1)
	}

	cmd.Diff(ctx, fs.Arg(0), fs.Arg(1), *pass, *verbose)
}

func runHistory(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	parse(fs, args)

	cmd.History(ctx, *verbose)
}

func runShow(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: darkcrypt show <id>")
		os.Exit(1)
	}

	cmd.Show(ctx, fs.Arg(0), *verbose)
}

func runForget(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	parse(fs, args)

	cmd.Forget(ctx, fs.Args(), *verbose)
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	parse(fs, args)

	cmd.Compact(ctx, *verbose)
}

func runKeyring(_ context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: darkcrypt keyring <save|delete|status> <name>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave(args[1])
	case "delete":
		cmd.KeyringDelete(args[1])
	case "status":
		cmd.KeyringStatus(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: darkcrypt keyring <save|delete|status> <name>")
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: darkcrypt completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("darkcrypt - Passphrase encryption for messages you share over untrusted channels")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  darkcrypt <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  encrypt      Encrypt a message into a payload")
	fmt.Println("  decrypt      Decrypt a payload, share link or saved payload")
	fmt.Println("  link         Print the share link for a payload")
	fmt.Println("  diff         Compare a decrypted message with a local file")
	fmt.Println("  history, ls  List saved payloads")
	fmt.Println("  show         Show a saved payload")
	fmt.Println("  forget, rm   Remove saved payloads")
	fmt.Println("  compact      Compact the journal to reclaim disk space")
	fmt.Println("  keyring      Manage passphrases in the OS keyring")
	fmt.Println("  completion   Generate shell completions")
	fmt.Println("  help         Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  darkcrypt encrypt \"meet at noon\"         # Print a payload")
	fmt.Println("  darkcrypt encrypt --link --copy < note   # Copy a share link")
	fmt.Println("  darkcrypt decrypt v1.xxxx.yyyy.zzzz      # Print the message")
	fmt.Println("  darkcrypt decrypt --out note.txt < link  # Write the message to a file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DARKCRYPT_PASSPHRASE     Passphrase (skips the prompt)")
	fmt.Println("  DARKCRYPT_ORIGIN         Share link origin (default https://darkcrypt.app)")
	fmt.Println("  DARKCRYPT_CLIPBOARD_TTL  Clear the clipboard after this long (default 20s, 0 disables)")
	fmt.Println("  DARKCRYPT_JOURNAL        Journal database path")
	fmt.Println("  DARKCRYPT_LOG_LEVEL      debug, info, warn (default) or error")
	fmt.Println()
	fmt.Println("Use 'darkcrypt help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "encrypt", "enc":
		fmt.Println("darkcrypt encrypt [--in FILE] [--copy] [--link] [--save] [--label L] [--keyring NAME|--pass-env VAR] [MESSAGE]")
		fmt.Println()
		fmt.Println("Encrypts a message with a passphrase and prints the payload.")
		fmt.Println("The message is taken from the argument, --in, or stdin.")
		fmt.Println("The passphrase is asked twice unless it comes from the environment or keyring.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --in FILE        Read the message from FILE")
		fmt.Println("  --copy           Copy the result to the clipboard and clear it after DARKCRYPT_CLIPBOARD_TTL")
		fmt.Println("  --link           Print a share link (<origin>/#<payload>) instead of the payload")
		fmt.Println("  --save           Save the payload (never the message) to the journal")
		fmt.Println("  --label L        Label for the journal entry")
		fmt.Println("  --keyring NAME   Read the passphrase from the OS keyring")
		fmt.Println("  --pass-env VAR   Read the passphrase from environment variable VAR")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  darkcrypt encrypt \"meet at noon\"")
		fmt.Println("  darkcrypt encrypt --in note.txt --link --copy")
		fmt.Println("  darkcrypt encrypt --keyring work --save --label bob < note.txt")
	case "decrypt", "dec":
		fmt.Println("darkcrypt decrypt [--out FILE] [--force|--keep-local|--keep-both] [--save] [--keyring NAME|--pass-env VAR] [PAYLOAD|LINK|ID]")
		fmt.Println()
		fmt.Println("Decrypts a payload, a share link, a #fragment or a saved payload ID.")
		fmt.Println("Reads stdin when no argument is given. Prints the message unless --out is set.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --out FILE     Write the message to FILE (inside the current directory, mode 0600)")
		fmt.Println("  --force        Overwrite FILE without asking")
		fmt.Println("  --keep-local   Keep an existing FILE")
		fmt.Println("  --keep-both    Keep FILE and save the message as FILE.from-payload")
		fmt.Println("  --save         Save the payload to the journal")
		fmt.Println("  --label L      Label for the journal entry")
		fmt.Println()
		fmt.Println("Interactive mode (default when FILE exists and differs):")
		fmt.Println("    [l] Keep local file")
		fmt.Println("    [p] Use payload (overwrite local file)")
		fmt.Println("    [e] Edit merged (opens in $EDITOR, text files only)")
		fmt.Println("    [b] Keep both (save message as .from-payload)")
		fmt.Println("    [d] Show diff")
		fmt.Println("    [x] Skip")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  darkcrypt decrypt 'https://darkcrypt.app/#v1.xxxx.yyyy.zzzz'")
		fmt.Println("  darkcrypt decrypt --out .env --keep-both < payload.txt")
		fmt.Println("  darkcrypt decrypt 3")
	case "link":
		fmt.Println("darkcrypt link [PAYLOAD]")
		fmt.Println()
		fmt.Println("Checks the payload format and prints its share link.")
		fmt.Println("The payload sits in the URL fragment, which browsers never send to the server.")
		fmt.Println("Does not require a passphrase.")
	case "diff":
		fmt.Println("darkcrypt diff [--keyring NAME|--pass-env VAR] <PAYLOAD|LINK|ID> <FILE>")
		fmt.Println()
		fmt.Println("Decrypts the payload and shows a unified diff from FILE to the message.")
		fmt.Println("Nothing is written.")
	case "history", "ls":
		fmt.Println("darkcrypt history")
		fmt.Println()
		fmt.Println("Lists payloads saved with --save. Only payloads are stored, never messages.")
		fmt.Println("Does not require a passphrase.")
	case "show":
		fmt.Println("darkcrypt show <ID>")
		fmt.Println()
		fmt.Println("Prints a saved payload and its share link.")
	case "forget", "rm":
		fmt.Println("darkcrypt forget <ID> [ID...]")
		fmt.Println()
		fmt.Println("Removes saved payloads from the journal.")
	case "compact":
		fmt.Println("darkcrypt compact")
		fmt.Println()
		fmt.Println("Compacts the journal database to reclaim space left by forgotten payloads.")
		fmt.Println("Does not require a passphrase.")
	case "keyring":
		fmt.Println("darkcrypt keyring <save|delete|status> <NAME>")
		fmt.Println()
		fmt.Println("Manages passphrases stored in the OS keyring.")
		fmt.Println("NAME may contain letters, digits, '.', '_' and '-' (max 64).")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  darkcrypt keyring save work")
		fmt.Println("  darkcrypt encrypt --keyring work \"hello\"")
	case "completion":
		fmt.Println("darkcrypt completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(darkcrypt completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(darkcrypt completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  darkcrypt completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
