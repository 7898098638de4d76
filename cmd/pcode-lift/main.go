// pcode-lift lowers a single instruction's p-code listing into typed IR and
// prints the resulting module, for inspecting what the lifter produces for a
// given operation stream without a native SLEIGH engine in the loop.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/llir/llvm/ir"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/Colton1skees/remill/arch"
	"github.com/Colton1skees/remill/lifter"
	"github.com/Colton1skees/remill/log"
	"github.com/Colton1skees/remill/pcode"
)

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "pcode-lift",
		Short: "Single-instruction p-code lifter",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		listingPath string
		instBytes   string
		instPC      string
		archName    string
		logLevel    string
		debug       string
	)

	var liftCmd = &cobra.Command{
		Use:   "lift",
		Short: "Lift one instruction's p-code listing into IR",
		Run: func(cmd *cobra.Command, args []string) {
			log.InitLogger(logLevel)
			log.EnableModules(debug)

			a, ok := arch.ByName(archName)
			if !ok {
				fmt.Printf("Unknown architecture %q\n", archName)
				os.Exit(1)
			}

			f, err := os.Open(listingPath)
			if err != nil {
				fmt.Printf("Failed to open listing: %v\n", err)
				os.Exit(1)
			}
			engine, err := pcode.ParseListing(f)
			f.Close()
			if err != nil {
				fmt.Printf("Failed to parse listing: %v\n", err)
				os.Exit(1)
			}

			pc, err := hexutil.DecodeUint64(instPC)
			if err != nil {
				fmt.Printf("Bad --pc value %q: %v\n", instPC, err)
				os.Exit(1)
			}
			raw, err := hexutil.Decode(instBytes)
			if err != nil {
				fmt.Printf("Bad --bytes value %q: %v\n", instBytes, err)
				os.Exit(1)
			}

			m := ir.NewModule()
			l := lifter.NewLifter(a, engine)
			inst := lifter.Instruction{PC: pc, Bytes: raw, Valid: true, Arch: a}
			status, fn, err := l.LiftIntoInternalFunction(m, inst, nil)
			if err != nil {
				fmt.Printf("Lift aborted: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("Status: %s\n", status.String())
			if fn == nil {
				return
			}
			fmt.Printf("\n%s\n", m.String())
			printBlockTree(fn)
		},
	}
	liftCmd.Flags().StringVar(&listingPath, "listing", "", "path to a textual p-code listing")
	liftCmd.Flags().StringVar(&instBytes, "bytes", "0x90", "instruction bytes as 0x-prefixed hex")
	liftCmd.Flags().StringVar(&instPC, "pc", "0x1000", "instruction address as 0x-prefixed hex")
	liftCmd.Flags().StringVar(&archName, "arch", "amd64", "architecture name")
	liftCmd.Flags().StringVar(&logLevel, "loglevel", "info", "log level (trace|debug|info|warn|error|crit)")
	liftCmd.Flags().StringVar(&debug, "debug", "", "comma-separated log modules to enable")
	liftCmd.MarkFlagRequired("listing")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pcode-lift %s (%s)\n", Version, Commit)
		},
	}

	rootCmd.AddCommand(liftCmd)
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printBlockTree renders the function's control flow as an indented tree:
// each block with its instruction count and terminator.
func printBlockTree(fn *ir.Func) {
	tree := treeprint.New()
	tree.SetValue(fn.Name())
	for _, blk := range fn.Blocks {
		branch := tree.AddBranch(fmt.Sprintf("%s (%d instructions)", blk.LocalIdent.Name(), len(blk.Insts)))
		if blk.Term != nil {
			branch.AddNode(blk.Term.LLString())
		}
	}
	fmt.Println(tree.String())
}
