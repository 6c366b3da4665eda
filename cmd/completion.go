package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_darkcrypt() {
    local cur prev words cword
    _init_completion || return

    local commands="encrypt decrypt link diff history show forget compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    case "$prev" in
        --in|--out)
            _filedir
            return
            ;;
    esac

    local cmd="${words[1]}"
    case "$cmd" in
        encrypt)
            COMPREPLY=($(compgen -W "--in --copy --link --save --label --keyring --pass-env -v" -- "$cur"))
            ;;
        decrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--out --force --keep-local --keep-both --save --label --keyring --pass-env -v" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(_darkcrypt_ids)" -- "$cur"))
            fi
            ;;
        diff)
            if [[ $cword -eq 3 ]]; then
                _filedir
            else
                COMPREPLY=($(compgen -W "$(_darkcrypt_ids)" -- "$cur"))
            fi
            ;;
        show|forget)
            COMPREPLY=($(compgen -W "$(_darkcrypt_ids)" -- "$cur"))
            ;;
        keyring)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            fi
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

_darkcrypt_ids() {
    darkcrypt history 2>/dev/null | awk 'NR > 1 && $1 ~ /^[0-9a-f]+$/ { print $1 }'
}

complete -F _darkcrypt darkcrypt
`

const zshCompletion = `#compdef darkcrypt

_darkcrypt() {
    local -a commands
    commands=(
        'encrypt:Encrypt a message into a payload'
        'decrypt:Decrypt a payload, link or saved payload'
        'link:Print the share link for a payload'
        'diff:Compare a decrypted message with a local file'
        'history:List saved payloads'
        'show:Show a saved payload'
        'forget:Remove saved payloads'
        'compact:Compact the journal to reclaim disk space'
        'keyring:Manage passphrases in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    local -a passflags
    passflags=(
        '--keyring[Read passphrase from OS keyring entry]:name:'
        '--pass-env[Read passphrase from environment variable]:variable:_parameters'
        '-v[Verbose logging]'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'darkcrypt commands' commands
            ;;
        args)
            case "${words[2]}" in
                encrypt)
                    _arguments $passflags \
                        '--in[Read message from file]:file:_files' \
                        '--copy[Copy result to clipboard]' \
                        '--link[Print a share link]' \
                        '--save[Save payload to journal]' \
                        '--label[Journal label]:label:' \
                        '*:message:'
                    ;;
                decrypt)
                    _arguments $passflags \
                        '--out[Write message to file]:file:_files' \
                        '--force[Overwrite existing file]' \
                        '--keep-local[Keep existing file]' \
                        '--keep-both[Save message next to existing file]' \
                        '--save[Save payload to journal]' \
                        '--label[Journal label]:label:' \
                        '*:payload:_darkcrypt_ids'
                    ;;
                diff)
                    _arguments $passflags '1:payload:_darkcrypt_ids' '2:file:_files'
                    ;;
                show|forget)
                    _arguments '*:id:_darkcrypt_ids'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'darkcrypt commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_darkcrypt_ids() {
    local -a ids
    ids=(${(f)"$(darkcrypt history 2>/dev/null | awk 'NR > 1 && $1 ~ /^[0-9a-f]+$/ { print $1 }')"})
    _describe -t ids 'saved payloads' ids
}

_darkcrypt "$@"
`

const fishCompletion = `# darkcrypt fish completions

set -l commands encrypt decrypt link diff history show forget compact keyring help completion

complete -c darkcrypt -f

# Commands
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt a message'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt a payload'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a link -d 'Print share link'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare message with file'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a history -d 'List saved payloads'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a show -d 'Show saved payload'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a forget -d 'Remove saved payloads'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact journal'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrases in OS keyring'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c darkcrypt -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# passphrase flags
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt decrypt diff" -l keyring -r -d 'OS keyring entry'
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt decrypt diff" -l pass-env -r -d 'Passphrase variable'

# encrypt flags
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt" -l in -r -F -d 'Read message from file'
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt" -l copy -d 'Copy to clipboard'
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt" -l link -d 'Print share link'
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt decrypt" -l save -d 'Save to journal'
complete -c darkcrypt -n "__fish_seen_subcommand_from encrypt decrypt" -l label -r -d 'Journal label'

# decrypt flags
complete -c darkcrypt -n "__fish_seen_subcommand_from decrypt" -l out -r -F -d 'Write message to file'
complete -c darkcrypt -n "__fish_seen_subcommand_from decrypt" -l force -d 'Overwrite existing file'
complete -c darkcrypt -n "__fish_seen_subcommand_from decrypt" -l keep-local -d 'Keep existing file'
complete -c darkcrypt -n "__fish_seen_subcommand_from decrypt" -l keep-both -d 'Keep both versions'

# diff takes a file as second argument
complete -c darkcrypt -n "__fish_seen_subcommand_from diff" -F

# keyring subcommands
complete -c darkcrypt -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c darkcrypt -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c darkcrypt -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
