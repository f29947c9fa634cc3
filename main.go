/*
 * This file is part of the georeferencer distribution (https://github.com/ecopia-map/georeferencer).
 * Copyright (c) 2026 The georeferencer authors
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecopia-map/georeferencer/internal/stage"
	"github.com/ecopia-map/georeferencer/pkg"
	"github.com/ecopia-map/georeferencer/pkg/collaborator_manager/std_collaborator_manager"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
)

const VERSION = "1.0.0"

const logo = `
                                 __
  ___ ____ ___  _______ ___ ___ / _|___ _ _ ___ _ _  __ ___ _ _
 / _ \/ -_) _ \| '_/ -_) -_) _|  _/ -_) '_/ -_) ' \/ _/ -_) '_|
 \__, \___\___/|_| \___\___\__|_| \___|_| \___|_||_\__\___|_|
 |___/ Georeferencing of topocentric reconstructions
       Copyright 2026 The georeferencer authors
`

func main() {
	flagsGlobal := tools.ParseFlagsGlobal()
	defer glog.Flush()

	if *flagsGlobal.Version {
		printVersion()
		return
	}
	if *flagsGlobal.Help {
		showHelp()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Fatalf("Please specify a subcommand [%s|%s].", tools.CommandRun, tools.CommandVerify)
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandRun:
		mainCommandRun(args)
	case tools.CommandVerify:
		mainCommandVerify(args)
	default:
		glog.Fatalf("Unrecognized command [%q]. Command must be one of [%s|%s]", cmd, tools.CommandRun, tools.CommandVerify)
	}
}

func mainCommandRun(args []string) {
	flags := tools.ParseFlagsForCommandRun(args)

	if *flags.Help {
		showHelp()
		return
	}
	if *flags.Version {
		printVersion()
		return
	}

	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	glog.V(1).Infoln("flags", tools.FmtJSONString(flags))

	stageFlags := flags.StageFlags

	// Put args inside a StageOptions struct
	opts := stage.StageOptions{
		ProjectPath:       projectPath(*stageFlags.Project),
		Rerun:             *stageFlags.Rerun,
		Crop:              *stageFlags.Crop,
		FastOrthophoto:    *stageFlags.FastOrthophoto,
		PrimaryBand:       *stageFlags.PrimaryBand,
		AlignFile:         *stageFlags.Align,
		BoundaryFile:      *stageFlags.Boundary,
		GcpFile:           *stageFlags.Gcp,
		OptimizeDiskSpace: *stageFlags.OptimizeDiskSpace,
		PointCloudExports: pointCloudExports(&stageFlags),
		PdalPath:          *stageFlags.Pdal,
		Ogr2OgrPath:       *stageFlags.Ogr2Ogr,
	}

	if msg, res := validateOptionsForCommandRun(&opts); !res {
		glog.Fatal("Error parsing input parameters: " + msg)
	}

	defer timeTrack(time.Now(), "georeferencing")
	report, err := pkg.NewGeoreferencing(tools.NewStandardModelFinder(), std_collaborator_manager.NewCollaboratorManager(&opts)).Run(&opts)
	if err != nil {
		glog.Fatal("Error while georeferencing: ", err)
	}
	tools.LogOutput(fmt.Sprintf("Georeferencing completed with %d warnings", len(report.Warnings())))
}

func pointCloudExports(flags *tools.StageFlags) []stage.PointCloudFormat {
	var formats []stage.PointCloudFormat
	if *flags.PcCsv {
		formats = append(formats, stage.PointCloudCSV)
	}
	if *flags.PcLas {
		formats = append(formats, stage.PointCloudLAS)
	}
	if *flags.PcCopc {
		formats = append(formats, stage.PointCloudCOPC)
	}
	return formats
}

func projectPath(configured string) string {
	if configured != "" {
		return configured
	}
	return tools.GetRootFolder()
}

// Validates the input options provided to the command line tool checking
// that the project and the optional input files exist
func validateOptionsForCommandRun(opts *stage.StageOptions) (string, bool) {
	if !tools.DirExists(opts.ProjectPath) {
		return "Project folder not found", false
	}
	if opts.Crop < 0 {
		return "crop cannot be negative", false
	}
	if opts.AlignFile != "" && !tools.FileExists(opts.AlignFile) {
		return "Align file not found", false
	}
	if opts.BoundaryFile != "" && !tools.FileExists(opts.BoundaryFile) {
		return "Boundary file not found", false
	}
	if opts.GcpFile != "" && !tools.FileExists(opts.GcpFile) {
		return "GCP file not found", false
	}
	return "", true
}

func mainCommandVerify(args []string) {
	flags := tools.ParseFlagsForCommandVerify(args)

	if *flags.Help {
		showHelp()
		return
	}

	opts := stage.StageOptions{ProjectPath: projectPath(*flags.Project)}
	if !tools.DirExists(opts.ProjectPath) {
		glog.Fatal("Error parsing input parameters: Project folder not found")
	}

	if _, err := pkg.NewStageVerify(tools.NewStandardModelFinder()).Run(&opts); err != nil {
		glog.Fatal("Verification failed: ", err)
	}
	tools.LogOutput("Verification completed")
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("georeferencer converts the topocentric outputs of a reconstruction into georeferenced point clouds, textured models and GCP files")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Commands: run, verify. Use <command> -help for the command flags.")
	fmt.Println("Global flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
