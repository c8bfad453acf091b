package apiconfig

import "imagechat/pkg/models"

func doubaoDefault(active bool) models.ConfigFields {
	return models.ConfigFields{
		Name:     "AI绘图服务",
		URL:      "https://ark.cn-beijing.volces.com/api/v3/images/generations",
		APIKey:   "",
		Model:    "doubao-seedream-4-0-250828",
		IsActive: active,
	}
}

func qwenDefault() models.ConfigFields {
	return models.ConfigFields{
		Name:     "阿里通义万象",
		URL:      "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-to-image/image-synthesis",
		APIKey:   "",
		Model:    "wanx-v1",
		IsActive: false,
	}
}
