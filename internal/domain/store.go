package domain

import "time"

// Store is a first-party vendor whose storefront is synced into the catalog
// and who receives settlement transfers.
type Store struct {
	ID             string `gorm:"size:64;primaryKey"`
	Name           string `gorm:"size:100;not null"`
	Domain         string `gorm:"size:255"`
	AccessToken    string `gorm:"size:128"`
	ConnectAccount string `gorm:"size:128"`
	Province       string `gorm:"size:2"`
	PostalCode     string `gorm:"size:10"`
	Active         bool   `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Address is a shipping destination.
type Address struct {
	Name       string
	Street     string
	City       string
	Province   string
	PostalCode string
	Country    string
}

// Parcel describes a shipment for quoting. Weight is in grams.
type Parcel struct {
	ItemCount int
	WeightG   int
}
