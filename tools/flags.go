package tools

import (
	"flag"

	"github.com/golang/glog"
)

const (
	CommandRun    = "run"
	CommandVerify = "verify"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type StageFlags struct {
	Project           *string  `json:"project"`
	Rerun             *bool    `json:"rerun"`
	Crop              *float64 `json:"crop"`
	FastOrthophoto    *bool    `json:"fast_orthophoto"`
	PrimaryBand       *string  `json:"primary_band"`
	Align             *string  `json:"align"`
	Boundary          *string  `json:"boundary"`
	Gcp               *string  `json:"gcp"`
	OptimizeDiskSpace *bool    `json:"optimize_disk_space"`
	PcCsv             *bool    `json:"pc_csv"`
	PcLas             *bool    `json:"pc_las"`
	PcCopc            *bool    `json:"pc_copc"`
	Pdal              *string  `json:"pdal"`
	Ogr2Ogr           *string  `json:"ogr2ogr"`
}

type FlagsForCommandRun struct {
	StageFlags
	Silent  *bool
	Help    *bool
	Version *bool
}

type FlagsForCommandVerify struct {
	Project *string
	Help    *bool
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "v", false, "Displays the version of georeferencer.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func ParseFlagsForCommandRun(args []string) FlagsForCommandRun {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-run", flag.ExitOnError)

	project := defineStringFlagCommand(flagCommand, "project", "p", "", "Specifies the project folder. Defaults to $GEOREF_WORKDIR or the executable folder.")
	rerun := defineBoolFlagCommand(flagCommand, "rerun", "r", false, "Regenerates every output of the stage, even if it already exists.")
	crop := defineFloat64FlagCommand(flagCommand, "crop", "c", 3, "Crop margin in meters applied to the point cloud footprint. Set to 0 to disable cropping.")
	fastOrthophoto := defineBoolFlagCommand(flagCommand, "fast-orthophoto", "f", false, "The reconstruction was done in fast orthophoto mode.")
	primaryBand := defineStringFlagCommand(flagCommand, "primary-band", "b", "auto", "Band whose textured models are written in the texturing folder. 'auto' picks RGB, then green, then blue.")
	align := defineStringFlagCommand(flagCommand, "align", "a", "", "Reference model (LAZ/LAS/GeoTIFF) to align the outputs to. Defaults to align.{laz,las,tif} in the project folder.")
	boundary := defineStringFlagCommand(flagCommand, "boundary", "", "", "GeoJSON polygon (WGS84) used as crop area when cropping is disabled or fails.")
	gcp := defineStringFlagCommand(flagCommand, "gcp", "g", "", "GCP list file. Defaults to odm_georeferencing/gcp_list.txt.")
	optimizeDiskSpace := defineBoolFlagCommand(flagCommand, "optimize-disk-space", "o", false, "Deletes the filtered point cloud once the georeferenced model exists.")
	pcCsv := defineBoolFlagCommand(flagCommand, "pc-csv", "", false, "Exports the georeferenced point cloud as CSV.")
	pcLas := defineBoolFlagCommand(flagCommand, "pc-las", "", false, "Exports the georeferenced point cloud as uncompressed LAS.")
	pcCopc := defineBoolFlagCommand(flagCommand, "pc-copc", "", false, "Exports the georeferenced point cloud as Cloud Optimized Point Cloud.")
	pdal := defineStringFlagCommand(flagCommand, "pdal", "", "pdal", "Path of the pdal executable.")
	ogr2ogr := defineStringFlagCommand(flagCommand, "ogr2ogr", "", "ogr2ogr", "Path of the ogr2ogr executable.")

	silent := defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")
	version := defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of georeferencer.")

	flagCommand.Parse(args)

	return FlagsForCommandRun{
		StageFlags: StageFlags{
			Project:           project,
			Rerun:             rerun,
			Crop:              crop,
			FastOrthophoto:    fastOrthophoto,
			PrimaryBand:       primaryBand,
			Align:             align,
			Boundary:          boundary,
			Gcp:               gcp,
			OptimizeDiskSpace: optimizeDiskSpace,
			PcCsv:             pcCsv,
			PcLas:             pcLas,
			PcCopc:            pcCopc,
			Pdal:              pdal,
			Ogr2Ogr:           ogr2ogr,
		},
		Silent:  silent,
		Help:    help,
		Version: version,
	}
}

func ParseFlagsForCommandVerify(args []string) FlagsForCommandVerify {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-verify", flag.ExitOnError)

	project := defineStringFlagCommand(flagCommand, "project", "p", "", "Specifies the project folder to verify.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")

	flagCommand.Parse(args)

	return FlagsForCommandVerify{
		Project: project,
		Help:    help,
	}
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
