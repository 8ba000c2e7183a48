// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"treels/internal/clipboard"
	"treels/internal/config"
	"treels/internal/render"
	"treels/internal/types"
	"treels/internal/utils"
	"treels/internal/walker"
)

const (
	rootUse              = "treels [directory...]"
	rootShortDescription = "display a directory tree"
	rootLongDescription  = `treels lists directories and files as an indented tree diagram.
Each requested directory is walked as an independent subtree; filters,
ordering, and depth bounds apply per sibling group. A closing report counts
the directories and files shown.`
	rootUsageExample = `  # Two levels of the current project, directories first
  treels -L 2 --dirsfirst .

  # Only Go files, pruning directories without any
  treels -P '*.go' --prune .

  # Permissions and human-readable sizes into a file
  treels -p -s --human -o listing.txt /var/log`

	allFlagName            = "all"
	dirsOnlyFlagName       = "dirs"
	levelFlagName          = "level"
	patternFlagName        = "pattern"
	excludeFlagName        = "exclude"
	followSymlinksFlagName = "follow"
	dirsFirstFlagName      = "dirsfirst"
	reverseSortFlagName    = "reverse"
	modifiedSortFlagName   = "time-sort"
	unsortedFlagName       = "unsorted"
	pruneFlagName          = "prune"
	fileLimitFlagName      = "filelimit"
	fullPathFlagName       = "full-path"
	classifyFlagName       = "classify"
	noIndentFlagName       = "no-indent"
	permissionsFlagName    = "protections"
	sizeFlagName           = "size"
	humanFlagName          = "human"
	userFlagName           = "user"
	groupFlagName          = "group"
	inodesFlagName         = "inodes"
	deviceFlagName         = "device"
	modifiedFlagName       = "modified"
	unprintableFlagName    = "unprintable"
	noReportFlagName       = "noreport"
	outputFlagName         = "output"
	copyFlagName           = "copy"
	configFlagName         = "config"
	versionFlagName        = "version"

	allFlagDescription            = "include hidden entries"
	dirsOnlyFlagDescription       = "list directories only"
	levelFlagDescription          = "descend only this many levels"
	patternFlagDescription        = "list only files matching the wildcard pattern"
	excludeFlagDescription        = "skip files and directories matching the wildcard pattern"
	followSymlinksFlagDescription = "follow directory symlinks"
	dirsFirstFlagDescription      = "list directories before files"
	reverseSortFlagDescription    = "reverse the name sort"
	modifiedSortFlagDescription   = "sort by last modification time"
	unsortedFlagDescription       = "leave entries in filesystem order"
	pruneFlagDescription          = "omit directories without any listed file"
	fileLimitFlagDescription      = "do not open directories with more entries than this"
	fullPathFlagDescription       = "print the full path of every entry"
	classifyFlagDescription       = "append '/' to directory names"
	noIndentFlagDescription       = "print without the connector skeleton"
	permissionsFlagDescription    = "print permissions"
	sizeFlagDescription           = "print size in bytes"
	humanFlagDescription          = "print sizes in human-readable units"
	userFlagDescription           = "print the owning user"
	groupFlagDescription          = "print the owning group"
	inodesFlagDescription         = "print the inode number"
	deviceFlagDescription         = "print the device id"
	modifiedFlagDescription       = "print the last modification time"
	unprintableFlagDescription    = "replace unprintable characters with '?'"
	noReportFlagDescription       = "omit the closing directory and file report"
	outputFlagDescription         = "write the listing to a file instead of stdout"
	copyFlagDescription           = "copy the listing to the system clipboard"
	configFlagDescription         = "configuration file to use instead of .treels.yaml"
	versionFlagDescription        = "display application version"

	versionTemplate = "treels version: %s\n"
	defaultPath     = "."

	invalidLevelMessage   = "invalid level %d, must be greater than 0"
	invalidSortFormat     = "invalid sort order '%s'"
	errorNoValidRoots     = "no valid directories to list"
	warningSkipRootFormat = "skipping %s: %v"
	warningClipboardFmt   = "clipboard copy failed: %v"
	errorOutputFileFormat = "writing output file %s: %w"
)

// walkFlags stores the traversal-related command line values.
type walkFlags struct {
	all            bool
	dirsOnly       bool
	level          int
	pattern        string
	exclude        string
	followSymlinks bool
	dirsFirst      bool
	reverseSort    bool
	modifiedSort   bool
	unsorted       bool
	prune          bool
	fileLimit      int
}

// displayFlags stores the rendering-related command line values.
type displayFlags struct {
	fullPath    bool
	classify    bool
	noIndent    bool
	permissions bool
	size        bool
	human       bool
	user        bool
	group       bool
	inodes      bool
	device      bool
	modified    bool
	unprintable bool
	noReport    bool
	output      string
	copy        bool
}

// Execute runs the treels application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command with the full flag set.
func createRootCommand() *cobra.Command {
	var showVersion bool
	var configFilePath string
	var walkConfiguration walkFlags
	var displayConfiguration displayFlags

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			if len(arguments) == 0 {
				arguments = []string{defaultPath}
			}
			applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: configFilePath})
			if configurationError != nil {
				return configurationError
			}
			applyConfigurationDefaults(command, &walkConfiguration, &displayConfiguration, applicationConfiguration)

			if command.Flags().Changed(levelFlagName) && walkConfiguration.level < 1 {
				return fmt.Errorf(invalidLevelMessage, walkConfiguration.level)
			}
			sortOrder, sortError := resolveSortOrder(applicationConfiguration.Walk.Sort, walkConfiguration)
			if sortError != nil {
				return sortError
			}

			walkerOptions := buildWalkerOptions(walkConfiguration, displayConfiguration, sortOrder)
			renderOptions := buildRenderOptions(displayConfiguration)
			return runTree(command.OutOrStdout(), arguments, walkerOptions, renderOptions, displayConfiguration)
		},
	}

	flagSet := rootCommand.Flags()
	flagSet.BoolVarP(&walkConfiguration.all, allFlagName, "a", false, allFlagDescription)
	flagSet.BoolVarP(&walkConfiguration.dirsOnly, dirsOnlyFlagName, "d", false, dirsOnlyFlagDescription)
	flagSet.IntVarP(&walkConfiguration.level, levelFlagName, "L", 0, levelFlagDescription)
	flagSet.StringVarP(&walkConfiguration.pattern, patternFlagName, "P", "", patternFlagDescription)
	flagSet.StringVarP(&walkConfiguration.exclude, excludeFlagName, "I", "", excludeFlagDescription)
	flagSet.BoolVarP(&walkConfiguration.followSymlinks, followSymlinksFlagName, "l", false, followSymlinksFlagDescription)
	flagSet.BoolVar(&walkConfiguration.dirsFirst, dirsFirstFlagName, false, dirsFirstFlagDescription)
	flagSet.BoolVarP(&walkConfiguration.reverseSort, reverseSortFlagName, "r", false, reverseSortFlagDescription)
	flagSet.BoolVarP(&walkConfiguration.modifiedSort, modifiedSortFlagName, "t", false, modifiedSortFlagDescription)
	flagSet.BoolVarP(&walkConfiguration.unsorted, unsortedFlagName, "U", false, unsortedFlagDescription)
	flagSet.BoolVar(&walkConfiguration.prune, pruneFlagName, false, pruneFlagDescription)
	flagSet.IntVar(&walkConfiguration.fileLimit, fileLimitFlagName, 0, fileLimitFlagDescription)

	flagSet.BoolVarP(&displayConfiguration.fullPath, fullPathFlagName, "f", false, fullPathFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.classify, classifyFlagName, "F", false, classifyFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.noIndent, noIndentFlagName, "i", false, noIndentFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.permissions, permissionsFlagName, "p", false, permissionsFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.size, sizeFlagName, "s", false, sizeFlagDescription)
	flagSet.BoolVar(&displayConfiguration.human, humanFlagName, false, humanFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.user, userFlagName, "u", false, userFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.group, groupFlagName, "g", false, groupFlagDescription)
	flagSet.BoolVar(&displayConfiguration.inodes, inodesFlagName, false, inodesFlagDescription)
	flagSet.BoolVar(&displayConfiguration.device, deviceFlagName, false, deviceFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.modified, modifiedFlagName, "D", false, modifiedFlagDescription)
	flagSet.BoolVarP(&displayConfiguration.unprintable, unprintableFlagName, "q", false, unprintableFlagDescription)
	flagSet.BoolVar(&displayConfiguration.noReport, noReportFlagName, false, noReportFlagDescription)
	flagSet.StringVarP(&displayConfiguration.output, outputFlagName, "o", "", outputFlagDescription)
	flagSet.BoolVar(&displayConfiguration.copy, copyFlagName, false, copyFlagDescription)

	flagSet.StringVar(&configFilePath, configFlagName, "", configFlagDescription)
	flagSet.BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)

	return rootCommand
}

// applyConfigurationDefaults folds file-provided values into flag targets
// that were not set explicitly on the command line.
func applyConfigurationDefaults(command *cobra.Command, walkConfiguration *walkFlags, displayConfiguration *displayFlags, fileConfiguration config.ApplicationConfiguration) {
	flagSet := command.Flags()
	applyBool := func(flagName string, target *bool, value *bool) {
		if value != nil && !flagSet.Changed(flagName) {
			*target = *value
		}
	}
	applyInt := func(flagName string, target *int, value *int) {
		if value != nil && !flagSet.Changed(flagName) {
			*target = *value
		}
	}
	applyString := func(flagName string, target *string, value string) {
		if value != "" && !flagSet.Changed(flagName) {
			*target = value
		}
	}

	applyBool(allFlagName, &walkConfiguration.all, fileConfiguration.Walk.All)
	applyBool(dirsOnlyFlagName, &walkConfiguration.dirsOnly, fileConfiguration.Walk.DirsOnly)
	applyInt(levelFlagName, &walkConfiguration.level, fileConfiguration.Walk.Level)
	applyString(patternFlagName, &walkConfiguration.pattern, fileConfiguration.Walk.Pattern)
	applyString(excludeFlagName, &walkConfiguration.exclude, fileConfiguration.Walk.Exclude)
	applyBool(followSymlinksFlagName, &walkConfiguration.followSymlinks, fileConfiguration.Walk.FollowSymlinks)
	applyBool(dirsFirstFlagName, &walkConfiguration.dirsFirst, fileConfiguration.Walk.DirsFirst)
	applyBool(pruneFlagName, &walkConfiguration.prune, fileConfiguration.Walk.Prune)
	applyInt(fileLimitFlagName, &walkConfiguration.fileLimit, fileConfiguration.Walk.FileLimit)

	applyBool(fullPathFlagName, &displayConfiguration.fullPath, fileConfiguration.Display.FullPath)
	applyBool(classifyFlagName, &displayConfiguration.classify, fileConfiguration.Display.Classify)
	applyBool(permissionsFlagName, &displayConfiguration.permissions, fileConfiguration.Display.Permissions)
	applyBool(sizeFlagName, &displayConfiguration.size, fileConfiguration.Display.Size)
	applyBool(humanFlagName, &displayConfiguration.human, fileConfiguration.Display.Human)
	applyBool(userFlagName, &displayConfiguration.user, fileConfiguration.Display.User)
	applyBool(groupFlagName, &displayConfiguration.group, fileConfiguration.Display.Group)
	applyBool(inodesFlagName, &displayConfiguration.inodes, fileConfiguration.Display.Inodes)
	applyBool(deviceFlagName, &displayConfiguration.device, fileConfiguration.Display.Device)
	applyBool(modifiedFlagName, &displayConfiguration.modified, fileConfiguration.Display.Modified)
	applyString(outputFlagName, &displayConfiguration.output, fileConfiguration.Display.Output)
	applyBool(copyFlagName, &displayConfiguration.copy, fileConfiguration.Display.Copy)

	if fileConfiguration.Display.Indent != nil && !flagSet.Changed(noIndentFlagName) {
		displayConfiguration.noIndent = !*fileConfiguration.Display.Indent
	}
	if fileConfiguration.Display.Report != nil && !flagSet.Changed(noReportFlagName) {
		displayConfiguration.noReport = !*fileConfiguration.Display.Report
	}
}

// resolveSortOrder combines the sort flags with the configured default. The
// explicit flags win in a fixed precedence: unsorted, modification time,
// reverse.
func resolveSortOrder(configuredSort string, walkConfiguration walkFlags) (string, error) {
	switch {
	case walkConfiguration.unsorted:
		return types.SortNone, nil
	case walkConfiguration.modifiedSort:
		return types.SortModified, nil
	case walkConfiguration.reverseSort:
		return types.SortNameDescending, nil
	}
	switch configuredSort {
	case "":
		return types.SortNameAscending, nil
	case types.SortNameAscending, types.SortNameDescending, types.SortModified, types.SortNone:
		return configuredSort, nil
	default:
		return "", fmt.Errorf(invalidSortFormat, configuredSort)
	}
}

func buildWalkerOptions(walkConfiguration walkFlags, displayConfiguration displayFlags, sortOrder string) walker.Options {
	return walker.Options{
		MaxDepth:       walkConfiguration.level,
		IncludeHidden:  walkConfiguration.all,
		DirsOnly:       walkConfiguration.dirsOnly,
		MatchPattern:   walkConfiguration.pattern,
		ExcludePattern: walkConfiguration.exclude,
		FollowSymlinks: walkConfiguration.followSymlinks,
		SortOrder:      sortOrder,
		DirsFirst:      walkConfiguration.dirsFirst,
		PruneEmpty:     walkConfiguration.prune,
		FileLimit:      walkConfiguration.fileLimit,
		ExtendedMetadata: displayConfiguration.inodes || displayConfiguration.device ||
			displayConfiguration.user || displayConfiguration.group,
	}
}

func buildRenderOptions(displayConfiguration displayFlags) render.Options {
	return render.Options{
		ShowRoot:            true,
		FullPath:            displayConfiguration.fullPath,
		Classify:            displayConfiguration.classify,
		NoIndent:            displayConfiguration.noIndent,
		NoReport:            displayConfiguration.noReport,
		ShowSize:            displayConfiguration.size,
		HumanSize:           displayConfiguration.human,
		ShowPermissions:     displayConfiguration.permissions,
		ShowUser:            displayConfiguration.user,
		ShowGroup:           displayConfiguration.group,
		ShowInode:           displayConfiguration.inodes,
		ShowDevice:          displayConfiguration.device,
		ShowModified:        displayConfiguration.modified,
		ReplaceNonPrintable: displayConfiguration.unprintable,
	}
}

// runTree walks every requested root into its own buffer, replays the
// buffers in argument order, and appends one merged report. Roots are
// independent: a failing root is logged and skipped while its siblings
// proceed; the run fails only when nothing could be listed.
func runTree(standardOutput io.Writer, rootPaths []string, walkerOptions walker.Options, renderOptions render.Options, displayConfiguration displayFlags) error {
	loggerInstance, loggerError := utils.NewApplicationLogger()
	if loggerError != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	defer func() { _ = loggerInstance.Sync() }()
	sugaredLogger := loggerInstance.Sugar()

	uniqueRoots := normalizeRootPaths(rootPaths)
	renderBuffers := make([]bytes.Buffer, len(uniqueRoots))
	rootSummaries := make([]types.Summary, len(uniqueRoots))
	rootFailures := make([]error, len(uniqueRoots))

	perRootOptions := renderOptions
	perRootOptions.NoReport = true

	group := new(errgroup.Group)
	for rootIndex, rootPath := range uniqueRoots {
		rootIndex, rootPath := rootIndex, rootPath
		group.Go(func() error {
			walkerInstance, walkerError := walker.New(rootPath, walkerOptions)
			if walkerError != nil {
				rootFailures[rootIndex] = walkerError
				return nil
			}
			rootRenderer := render.New(&renderBuffers[rootIndex], perRootOptions)
			if renderError := rootRenderer.RenderAll(walkerInstance); renderError != nil {
				return renderError
			}
			rootSummaries[rootIndex] = rootRenderer.Summary()
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return waitError
	}

	var combinedOutput bytes.Buffer
	var mergedSummary types.Summary
	failedRootCount := 0
	for rootIndex, rootPath := range uniqueRoots {
		if rootFailures[rootIndex] != nil {
			sugaredLogger.Warnf(warningSkipRootFormat, rootPath, rootFailures[rootIndex])
			failedRootCount++
			continue
		}
		combinedOutput.Write(renderBuffers[rootIndex].Bytes())
		mergedSummary.Add(rootSummaries[rootIndex])
	}
	if failedRootCount == len(uniqueRoots) {
		return fmt.Errorf(errorNoValidRoots)
	}
	if reportError := render.WriteReport(&combinedOutput, mergedSummary, renderOptions); reportError != nil {
		return reportError
	}

	return deliverOutput(standardOutput, combinedOutput.String(), displayConfiguration, sugaredLogger)
}

// deliverOutput sends the rendered listing to the configured sinks.
func deliverOutput(standardOutput io.Writer, outputText string, displayConfiguration displayFlags, sugaredLogger *zap.SugaredLogger) error {
	if displayConfiguration.copy {
		if copyError := clipboard.NewService().Copy(outputText); copyError != nil {
			sugaredLogger.Warnf(warningClipboardFmt, copyError)
		}
	}
	if displayConfiguration.output != "" {
		if writeError := os.WriteFile(displayConfiguration.output, []byte(outputText), 0o644); writeError != nil {
			return fmt.Errorf(errorOutputFileFormat, displayConfiguration.output, writeError)
		}
		return nil
	}
	_, writeError := io.WriteString(standardOutput, outputText)
	return writeError
}

// normalizeRootPaths converts the requested paths to absolute form and drops
// duplicates while preserving argument order. Existence is checked by each
// root's walker so one bad root cannot fail its siblings.
func normalizeRootPaths(inputPaths []string) []string {
	seenPaths := make(map[string]struct{})
	var normalized []string
	for _, inputPath := range inputPaths {
		absolutePath, absolutePathError := filepath.Abs(inputPath)
		if absolutePathError != nil {
			absolutePath = inputPath
		}
		cleanPath := filepath.Clean(absolutePath)
		if _, duplicate := seenPaths[cleanPath]; duplicate {
			continue
		}
		seenPaths[cleanPath] = struct{}{}
		normalized = append(normalized, cleanPath)
	}
	return normalized
}
