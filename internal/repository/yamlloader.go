package repository

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FixtureFile is the top-level structure of a domain fixture YAML file used
// to seed a [MemRepo] for development and demos.
//
// Example:
//
//	schools:
//	  - id: sch-1
//	    name: "Main School"
//	students:
//	  - id: stu-1
//	    name: "Ahmed Khan"
//	    school: sch-1
type FixtureFile struct {
	Schools    []fixtureEntity `yaml:"schools"`
	Students   []fixtureEntity `yaml:"students"`
	Employees  []fixtureEntity `yaml:"employees"`
	Items      []fixtureEntity `yaml:"items"`
	Categories []fixtureEntity `yaml:"categories"`
}

type fixtureEntity struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	School string `yaml:"school"`
}

// LoadFixtureFile reads and parses a fixture YAML file from disk.
func LoadFixtureFile(path string) (*FixtureFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repository: open fixture file %q: %w", path, err)
	}
	defer f.Close()

	ff, err := LoadFixtureFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("repository: parse fixture file %q: %w", path, err)
	}
	return ff, nil
}

// LoadFixtureFromReader parses fixture YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadFixtureFromReader(r io.Reader) (*FixtureFile, error) {
	var ff FixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("repository: decode fixture yaml: %w", err)
	}
	return &ff, nil
}

// ImportFixture loads all entities from a parsed [FixtureFile] into repo.
// Returns the number of entities imported. Entities must carry both an ID
// and a name; the first offender aborts the import.
func ImportFixture(repo *MemRepo, ff *FixtureFile) (int, error) {
	if ff == nil {
		return 0, fmt.Errorf("repository: fixture must not be nil")
	}

	count := 0
	add := func(kind Kind, list []fixtureEntity) error {
		for i, fe := range list {
			if fe.ID == "" || fe.Name == "" {
				return fmt.Errorf("repository: %s[%d]: id and name are required", kind, i)
			}
			repo.Add(kind, Entity{ID: fe.ID, DisplayName: fe.Name, SchoolID: fe.School})
			count++
		}
		return nil
	}

	for _, group := range []struct {
		kind Kind
		list []fixtureEntity
	}{
		{KindSchool, ff.Schools},
		{KindStudent, ff.Students},
		{KindEmployee, ff.Employees},
		{KindItem, ff.Items},
		{KindCategory, ff.Categories},
	} {
		if err := add(group.kind, group.list); err != nil {
			return count, err
		}
	}
	return count, nil
}
