package gradle

import (
	"flag"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

// ArgsFlag introduces the group of arguments passed through to Gradle.
// The group runs until the next "--" or the end of the command line.
const ArgsFlag = "--ament-gradle-args"

const argsExtra = "ament_gradle_args"

// ExtractGroup removes every occurrence of flagName and the arguments that
// follow it, up to and including a terminating "--", from args. The
// collected arguments are returned in order.
func ExtractGroup(args []string, flagName string) (rest, group []string) {
	rest = []string{}
	group = []string{}
	for i := 0; i < len(args); i++ {
		if args[i] != flagName {
			rest = append(rest, args[i])
			continue
		}
		i++
		for ; i < len(args) && args[i] != "--"; i++ {
			group = append(group, args[i])
		}
	}
	return rest, group
}

// RegisterFlags declares the pass-through group so it shows up in usage
// output. The actual values are collected by PreprocessArguments, since
// the flag package cannot take a variable number of dash-prefixed values.
func (a *Adapter) RegisterFlags(fs *flag.FlagSet) {
	fs.Bool(ArgsFlag[2:], false,
		"Arbitrary arguments which are passed to 'ament_gradle' Gradle projects. "+
			"Argument collection can be terminated with '--'.")
}

func (a *Adapter) PreprocessArguments(args []string) ([]string, map[string][]string) {
	rest, group := ExtractGroup(args, ArgsFlag)
	return rest, map[string][]string{argsExtra: group}
}

// ExtendContext sets the pass-through arguments on bc: configured default
// arguments first, then the ones given on the command line.
func (a *Adapter) ExtendContext(bc *domain.BuildContext, extras map[string][]string) {
	args := append([]string{}, a.cfg.DefaultArgs...)
	args = append(args, extras[argsExtra]...)
	bc.GradleArgs = args
}
