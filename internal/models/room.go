package models

import "time"

type Room struct {
	ID        string    `yaml:"id" json:"id" db:"id"`
	Name      string    `yaml:"name" json:"name" db:"name"`
	Capacity  int       `yaml:"capacity" json:"capacity" db:"capacity"`
	Order     int       `yaml:"order" json:"order" db:"sort_order"`
	CreatedAt time.Time `yaml:"-" json:"createdAt" db:"created_at"`
}
