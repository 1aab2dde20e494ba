package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document описание схемы одной сборки игры: плоские сериализаторы и серверные классы
type Document struct {
	Build       uint32                 `yaml:"build" json:"build"`
	Serializers []SerializerDescriptor `yaml:"serializers" json:"serializers"`
	Classes     []ClassDescriptor      `yaml:"classes" json:"classes"`
}

// SerializerDescriptor описание сериализатора
type SerializerDescriptor struct {
	Name    string            `yaml:"name" json:"name"`
	Version int32             `yaml:"version" json:"version"`
	Fields  []FieldDescriptor `yaml:"fields" json:"fields"`
}

// FieldDescriptor описание свойства сериализатора.
// Serializer задаёт вложенную схему для векторов и указателей.
type FieldDescriptor struct {
	Name              string  `yaml:"name" json:"name"`
	Type              string  `yaml:"type" json:"type"`
	Decoder           string  `yaml:"decoder,omitempty" json:"decoder,omitempty"`
	Serializer        string  `yaml:"serializer,omitempty" json:"serializer,omitempty"`
	SerializerVersion int32   `yaml:"serializer_version,omitempty" json:"serializer_version,omitempty"`
	BitCount          int     `yaml:"bit_count,omitempty" json:"bit_count,omitempty"`
	Low               float32 `yaml:"low,omitempty" json:"low,omitempty"`
	High              float32 `yaml:"high,omitempty" json:"high,omitempty"`
	Flags             int     `yaml:"flags,omitempty" json:"flags,omitempty"`
	Encoder           string  `yaml:"encoder,omitempty" json:"encoder,omitempty"`
}

// ClassDescriptor серверный класс и имя его сериализатора
type ClassDescriptor struct {
	ID         int32  `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Serializer string `yaml:"serializer,omitempty" json:"serializer,omitempty"`
}

// serializerName имя сериализатора класса; по умолчанию совпадает с именем класса
func (c ClassDescriptor) serializerName() string {
	if c.Serializer != "" {
		return c.Serializer
	}
	return c.Name
}

// ParseYAML читает документ схемы. Неизвестные ключи считаются ошибкой.
func ParseYAML(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("пустой документ схемы")
		}
		return nil, fmt.Errorf("ошибка разбора схемы: %w", err)
	}
	return &doc, nil
}

// LoadFile читает документ схемы из файла (YAML или JSON)
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := ParseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
