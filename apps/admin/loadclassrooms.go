package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/sims-edu/sims/core/classroom"
)

type classroomSeed struct {
	Classroom []classroom.NewClassroom `toml:"classroom"`
}

// loadClassrooms creates the classrooms of a seed file that do not exist yet.
func (cli *commandLine) loadClassrooms(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading seed file")
	}
	var seed classroomSeed
	if err = toml.Unmarshal(data, &seed); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	for i := range seed.Classroom {
		if err = seed.Classroom[i].Validate(cli.validate); err != nil {
			return errors.Wrapf(validationErr(err), "classroom #%d", i+1)
		}
	}

	created, err := cli.crSvc.Load(context.Background(), seed.Classroom)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d classroom(s) created, %d already existed\n", created, len(seed.Classroom)-created)
	return nil
}
