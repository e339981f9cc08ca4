package models

import (
	"time"

	"gorm.io/gorm"
)

// DeliveryStatus represents the status of a material delivery
type DeliveryStatus string

const (
	DeliveryRequested DeliveryStatus = "REQUESTED"
	DeliveryOrdered   DeliveryStatus = "ORDERED"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryAccepted  DeliveryStatus = "ACCEPTED"
	DeliveryRejected  DeliveryStatus = "REJECTED"
)

// IsValid checks if the delivery status value is valid
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryRequested, DeliveryOrdered, DeliveryInTransit, DeliveryDelivered, DeliveryAccepted, DeliveryRejected:
		return true
	}
	return false
}

// Delivery represents an ordered material delivery. When BlocksWork is set
// and the delivery is anchored to a task, creating it opens a START-scope
// block on that task; accepting the delivery resolves the block.
type Delivery struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	ProjectID    string         `json:"projectId" gorm:"column:project_id;index;not null"`
	TaskID       *string        `json:"taskId" gorm:"column:task_id;index"`
	LocationID   *string        `json:"locationId" gorm:"column:location_id"`
	SupplierName string         `json:"supplierName" gorm:"column:supplier_name;not null"`
	Status       DeliveryStatus `json:"status" gorm:"not null;default:'REQUESTED'"`
	ExpectedDate *time.Time     `json:"expectedDate" gorm:"column:expected_date"`
	DeliveredAt  *time.Time     `json:"deliveredAt" gorm:"column:delivered_at"`
	BlocksWork   bool           `json:"blocksWork" gorm:"column:blocks_work"`
	StatusReason string         `json:"statusReason" gorm:"column:status_reason"`
	Items        []DeliveryItem `json:"items" gorm:"foreignKey:DeliveryID"`
	CreatedBy    string         `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy    string         `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Delivery Model
func (Delivery) TableName() string {
	return "deliveries"
}

// DeliveryItem is a line item on a delivery
type DeliveryItem struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	DeliveryID string  `json:"-" gorm:"column:delivery_id;index;not null"`
	Name       string  `json:"name" gorm:"not null"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	Notes      string  `json:"notes"`
}

// TableName specifies the table name for DeliveryItem Model
func (DeliveryItem) TableName() string {
	return "delivery_items"
}
