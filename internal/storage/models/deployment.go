// internal/storage/models/deployment.go
package models

import "time"

// Deployment is a single token deployment record.
type Deployment struct {
	ID                   uint      `gorm:"primarykey" json:"-"`
	Address              string    `gorm:"index;not null;type:varchar(44)" json:"address"`
	Name                 string    `gorm:"not null;type:varchar(32)" json:"name"`
	Symbol               string    `gorm:"not null;type:varchar(10)" json:"symbol"`
	Decimals             uint8     `gorm:"not null" json:"decimals"`
	TotalSupply          uint64    `gorm:"not null" json:"totalSupply"`
	Creator              string    `gorm:"index;not null;type:varchar(44)" json:"creator"`
	MetadataURI          string    `gorm:"type:text" json:"metadataUri,omitempty"`
	TransactionSignature string    `gorm:"unique;not null;type:varchar(88)" json:"transactionSignature"`
	DeployedAt           time.Time `gorm:"index;not null" json:"deployedAt"`
}
