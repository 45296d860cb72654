package config

type Media struct{}

var _ MediaConfig = Media{}

func (Media) GetCloudinaryCloudName() string {
	return GetEnv("CLOUDINARY_CLOUD_NAME", "")
}

func (Media) GetCloudinaryUploadPreset() string {
	return GetEnv("CLOUDINARY_UPLOAD_PRESET", "")
}
