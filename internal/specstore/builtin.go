package specstore

import "github.com/synapse-sh/synapse/internal/specmodel"

// builtinSpecs seeds the store with minimal argument-template entries for
// common POSIX commands plus the handful of wrapper commands that need the
// "recursive" flag (spec.md §4.3). This is a deliberately small seed set —
// real coverage comes from discovery and project specs — but it is enough to
// make the git/docker/ssh scenarios in spec.md §8 concretely testable.
func builtinSpecs() map[string]specmodel.CommandSpec {
	specs := []specmodel.CommandSpec{
		{
			Name:        "git",
			Description: "distributed version control",
			Subcommands: []specmodel.SubcommandSpec{
				{Name: "checkout", Aliases: []string{"co"}, Description: "switch branches or restore working tree files",
					Args: []specmodel.ArgSpec{{Name: "branch", Generator: &specmodel.GeneratorSpec{Command: "git branch --format='%(refname:short)'"}}}},
				{Name: "cherry-pick", Description: "apply the changes introduced by existing commits"},
				{Name: "commit", Description: "record changes to the repository",
					Options: []specmodel.OptionSpec{
						{Short: "-m", Long: "--message", Description: "commit message", TakesArg: true},
						{Short: "-a", Description: "stage all modified files"},
					}},
				{Name: "branch", Description: "list, create, or delete branches"},
				{Name: "status", Description: "show the working tree status"},
				{Name: "push", Description: "update remote refs"},
				{Name: "pull", Description: "fetch and integrate with another repository"},
				{Name: "diff", Description: "show changes between commits, commit and working tree, etc"},
				{Name: "log", Description: "show commit logs"},
				{Name: "rebase", Description: "reapply commits on top of another base tip"},
				{Name: "stash", Description: "stash the changes in a dirty working directory away"},
			},
		},
		{
			Name:        "docker",
			Description: "container platform",
			Subcommands: []specmodel.SubcommandSpec{
				{Name: "ps", Description: "list containers"},
				{Name: "run", Description: "run a command in a new container",
					Args: []specmodel.ArgSpec{{Name: "image", Generator: &specmodel.GeneratorSpec{Command: "docker images --format '{{.Repository}}:{{.Tag}}'"}}}},
				{Name: "exec", Description: "run a command in a running container",
					Args: []specmodel.ArgSpec{{Name: "container", Generator: &specmodel.GeneratorSpec{Command: "docker ps --format '{{.Names}}'"}}}},
				{Name: "build", Description: "build an image from a Dockerfile"},
				{Name: "compose", Description: "define and run multi-container applications"},
				{Name: "logs", Description: "fetch the logs of a container"},
				{Name: "stop", Description: "stop one or more running containers"},
			},
		},
		{
			Name:        "npm",
			Description: "Node.js package manager",
			Subcommands: []specmodel.SubcommandSpec{
				{Name: "install", Aliases: []string{"i"}, Description: "install a package"},
				{Name: "run", Description: "run an arbitrary package script"},
				{Name: "test", Description: "run the test script"},
				{Name: "ci", Description: "clean-install from the lockfile"},
				{Name: "publish", Description: "publish a package"},
			},
		},
		{
			Name:        "cargo",
			Description: "Rust package manager",
			Subcommands: []specmodel.SubcommandSpec{
				{Name: "build", Description: "compile the current package"},
				{Name: "run", Description: "run a binary or example"},
				{Name: "test", Description: "run the tests"},
				{Name: "check", Description: "analyze and report errors without building"},
				{Name: "add", Description: "add a dependency"},
			},
		},
		{
			Name:        "kubectl",
			Description: "Kubernetes cluster management",
			Subcommands: []specmodel.SubcommandSpec{
				{Name: "get", Description: "display one or many resources"},
				{Name: "apply", Description: "apply a configuration to a resource"},
				{Name: "delete", Description: "delete resources"},
				{Name: "logs", Description: "print container logs"},
				{Name: "exec", Description: "execute a command in a container"},
				{Name: "describe", Description: "show details of a resource"},
			},
		},
		{
			Name:        "ssh",
			Description: "OpenSSH remote login client",
			Args:        []specmodel.ArgSpec{{Name: "destination", Template: specmodel.TemplateHistory}},
		},
		{
			Name:        "scp",
			Description: "secure copy",
			Args: []specmodel.ArgSpec{
				{Name: "source", Template: specmodel.TemplateFilePaths},
				{Name: "destination", Variadic: true},
			},
		},
		{
			Name:        "sftp",
			Description: "secure file transfer",
			Args:        []specmodel.ArgSpec{{Name: "destination"}},
		},
		{Name: "sudo", Description: "execute a command as another user", Recursive: true},
		{Name: "env", Description: "run a program in a modified environment", Recursive: true},
		{Name: "xargs", Description: "build and execute command lines from standard input", Recursive: true},
		{Name: "cd", Description: "change the working directory",
			Args: []specmodel.ArgSpec{{Name: "dir", Template: specmodel.TemplateDirs}}},
		{Name: "ls", Description: "list directory contents",
			Options: []specmodel.OptionSpec{{Short: "-l", Description: "long listing format"}, {Short: "-a", Long: "--all", Description: "include dotfiles"}},
			Args:    []specmodel.ArgSpec{{Name: "path", Template: specmodel.TemplateDirs, Variadic: true}}},
		{Name: "cat", Description: "concatenate and print files",
			Args: []specmodel.ArgSpec{{Name: "file", Template: specmodel.TemplateFilePaths, Variadic: true}}},
		{Name: "grep", Description: "print lines matching a pattern",
			Options: []specmodel.OptionSpec{{Short: "-r", Long: "--recursive", Description: "search directories recursively"}, {Short: "-i", Long: "--ignore-case", Description: "ignore case"}},
			Args:    []specmodel.ArgSpec{{Name: "pattern", Required: true}, {Name: "file", Template: specmodel.TemplateFilePaths, Variadic: true}}},
		{Name: "find", Description: "search for files in a directory hierarchy",
			Args: []specmodel.ArgSpec{{Name: "path", Template: specmodel.TemplateDirs}}},
		{Name: "echo", Description: "display a line of text",
			Args: []specmodel.ArgSpec{{Name: "text", Variadic: true}}},
	}

	out := make(map[string]specmodel.CommandSpec, len(specs))
	for _, s := range specs {
		s.Source = specmodel.SourceBuiltin
		out[s.Name] = s
	}
	return out
}

// builtinAliases maps alias → canonical name for builtin commands. Kept
// separate from the tree itself per spec.md §9 ("aliases map into a flat
// alias → canonical table kept separate from the tree").
func builtinAliases(specs map[string]specmodel.CommandSpec) map[string]string {
	aliases := map[string]string{
		"g": "git",
		"k": "kubectl",
	}
	for name, spec := range specs {
		for _, a := range spec.Aliases {
			aliases[a] = name
		}
	}
	return aliases
}
