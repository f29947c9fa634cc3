package gcp

import (
	"github.com/ecopia-map/georeferencer/internal/io"
)

// Ogr2OgrConverter converts vector files with GDAL's ogr2ogr
type Ogr2OgrConverter struct {
	runner  io.CommandRunner
	program string
}

func NewOgr2OgrConverter(runner io.CommandRunner, program string) *Ogr2OgrConverter {
	if program == "" {
		program = "ogr2ogr"
	}
	return &Ogr2OgrConverter{runner: runner, program: program}
}

func (c *Ogr2OgrConverter) ToGML(in string, out string) error {
	return c.runner.Run(c.program, "-of", "GML", out, in)
}
