package models

// OrderSequence backs gapless order numbering, one counter per
// prefix+year. Advanced with an UPDATE inside the order-creation
// transaction so concurrent tills serialize on the row.
type OrderSequence struct {
	Prefix  string `gorm:"column:prefix;primaryKey"`
	Year    int    `gorm:"column:year;primaryKey"`
	Counter int64  `gorm:"column:counter;not null;default:0"`
}

func (OrderSequence) TableName() string { return "order_sequences" }

// ZReportSequence numbers Z-reports per business day.
type ZReportSequence struct {
	Day     string `gorm:"column:day;primaryKey"` // YYYYMMDD
	Counter int64  `gorm:"column:counter;not null;default:0"`
}

func (ZReportSequence) TableName() string { return "z_report_sequences" }
